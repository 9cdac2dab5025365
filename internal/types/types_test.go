package types

import (
	"encoding/json"
	"testing"
)

func TestNewMoney_RoundsToMinorUnits(t *testing.T) {
	tests := []struct {
		major float64
		want  int64
	}{
		{13.00, 1300},
		{150, 15000},
		{0.015, 2},
		{19.999, 2000},
	}
	for _, tt := range tests {
		if got := NewMoney(tt.major, "NAD").Amount; got != tt.want {
			t.Errorf("NewMoney(%v) = %d, want %d", tt.major, got, tt.want)
		}
	}
}

func TestMoney_String(t *testing.T) {
	if got := NewMoney(13, "NAD").String(); got != "NAD 13.00" {
		t.Errorf("String() = %q", got)
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{Lat: -22.57, Lng: 17.08}, true},
		{Point{Lat: 90, Lng: 180}, true},
		{Point{Lat: 90.0001, Lng: 0}, false},
		{Point{Lat: 0, Lng: -180.5}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestMoney_JSONUsesMajorUnits(t *testing.T) {
	b, err := json.Marshal(NewMoney(13, "NAD"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":13,"currency":"NAD"}` {
		t.Fatalf("unexpected json %s", b)
	}
	var m Money
	if err := json.Unmarshal([]byte(`{"amount":42.5,"currency":"NAD"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Amount != 4250 {
		t.Fatalf("expected 4250 minor units, got %d", m.Amount)
	}
}
