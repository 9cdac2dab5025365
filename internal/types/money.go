// README: Money value object; amounts are kept in minor units (cents).
package types

import (
	"encoding/json"
	"fmt"
	"math"
)

type Money struct {
	Amount   int64
	Currency string
}

// NewMoney converts a major-unit amount (13.00) into Money.
func NewMoney(major float64, currency string) Money {
	return Money{Amount: int64(math.Round(major * 100)), Currency: currency}
}

// Major returns the amount in major units.
func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %.2f", m.Currency, m.Major())
}

type moneyJSON struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// MarshalJSON writes major units, the form clients display.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Major(), Currency: m.Currency})
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = NewMoney(v.Amount, v.Currency)
	return nil
}
