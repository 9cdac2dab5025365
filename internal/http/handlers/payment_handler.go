// README: Fare calculation and cash payment handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/modules/payment"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: svc}
}

func (h *PaymentHandler) CalculateFare(c *gin.Context) {
	var req requestRideReq
	if !bind(c, &req) {
		return
	}
	q, err := h.payments.CalculateFare(c.Request.Context(), *req.Pickup, *req.Dropoff, req.RideType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Fare calculated successfully", toQuoteView(q))
}

func (h *PaymentHandler) Process(c *gin.Context) {
	var req struct {
		RideID        string  `json:"ride_id"`
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"payment_method"`
	}
	if !bind(c, &req) {
		return
	}
	id, ok := requireID(c, "ride_id", req.RideID)
	if !ok {
		return
	}
	p, err := h.payments.ProcessPayment(c.Request.Context(), payment.ProcessCommand{
		RideID: id,
		UserID: caller(c),
		Amount: req.Amount,
		Method: req.PaymentMethod,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Payment processed successfully", p)
}

func (h *PaymentHandler) History(c *gin.Context) {
	q, err := pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.payments.History(c.Request.Context(), caller(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment history retrieved successfully", page)
}
