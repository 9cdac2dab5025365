// README: Driver and parent subscription handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/modules/subscription"
)

type SubscriptionHandler struct {
	subs *subscription.Service
}

func NewSubscriptionHandler(svc *subscription.Service) *SubscriptionHandler {
	return &SubscriptionHandler{subs: svc}
}

type methodReq struct {
	PaymentMethod string `json:"payment_method"`
}

func (r methodReq) method() string {
	if r.PaymentMethod == "" {
		return subscription.MethodCash
	}
	return r.PaymentMethod
}

func (h *SubscriptionHandler) status(c *gin.Context, plan subscription.Plan) {
	sub, err := h.subs.Status(c.Request.Context(), plan, caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if sub == nil {
		response.OK(c, "No subscription found", gin.H{"status": subscription.StatusNone})
		return
	}
	response.OK(c, "Subscription retrieved successfully", sub)
}

func (h *SubscriptionHandler) CreateDriver(c *gin.Context) {
	var req methodReq
	if !bind(c, &req) {
		return
	}
	sub, err := h.subs.CreateDriver(c.Request.Context(), caller(c), req.method())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Subscription created successfully", sub)
}

func (h *SubscriptionHandler) DriverStatus(c *gin.Context) {
	h.status(c, subscription.PlanDriver)
}

func (h *SubscriptionHandler) DriverByID(c *gin.Context) {
	id, ok := requireID(c, "subscription id", c.Param("id"))
	if !ok {
		return
	}
	sub, err := h.subs.GetDriverSubscription(c.Request.Context(), caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Subscription retrieved successfully", sub)
}

func (h *SubscriptionHandler) UpdateDriver(c *gin.Context) {
	var req struct {
		AutoRenew               *bool           `json:"autoRenew"`
		PaymentMethod           *string         `json:"paymentMethod"`
		NotificationPreferences map[string]bool `json:"notificationPreferences"`
	}
	if !bind(c, &req) {
		return
	}
	sub, err := h.subs.UpdateDriverSettings(c.Request.Context(), subscription.UpdateSettingsCommand{
		DriverID:                caller(c),
		AutoRenew:               req.AutoRenew,
		PaymentMethod:           req.PaymentMethod,
		NotificationPreferences: req.NotificationPreferences,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Subscription updated successfully", sub)
}

func (h *SubscriptionHandler) DriverPayment(c *gin.Context) {
	var req struct {
		methodReq
		Amount float64 `json:"amount"`
	}
	if !bind(c, &req) {
		return
	}
	sub, p, err := h.subs.ProcessDriverPayment(c.Request.Context(), caller(c), req.Amount, req.method())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Subscription payment processed successfully", gin.H{
		"subscription": sub,
		"payment":      p,
	})
}

func (h *SubscriptionHandler) DriverPaymentHistory(c *gin.Context) {
	q, err := pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.subs.PaymentHistory(c.Request.Context(), caller(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Payment history retrieved successfully", page)
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req struct {
		methodReq
		Children []subscription.Child `json:"childrenProfiles"`
	}
	if !bind(c, &req) {
		return
	}
	sub, err := h.subs.Subscribe(c.Request.Context(), subscription.SubscribeCommand{
		UserID:        caller(c),
		PaymentMethod: req.method(),
		Children:      req.Children,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Subscribed successfully", sub)
}

func (h *SubscriptionHandler) ParentStatus(c *gin.Context) {
	h.status(c, subscription.PlanParent)
}

func (h *SubscriptionHandler) UpdateParent(c *gin.Context) {
	var req struct {
		AutoRenew *bool `json:"autoRenew"`
	}
	if !bind(c, &req) {
		return
	}
	sub, err := h.subs.UpdateParent(c.Request.Context(), caller(c), req.AutoRenew)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Subscription updated successfully", sub)
}

// CancelParent takes the reason from the query string; DELETE bodies are
// dropped by some clients.
func (h *SubscriptionHandler) CancelParent(c *gin.Context) {
	sub, err := h.subs.Cancel(c.Request.Context(), subscription.PlanParent, caller(c), c.Query("reason"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Subscription cancelled successfully", sub)
}

func (h *SubscriptionHandler) Children(c *gin.Context) {
	children, err := h.subs.Children(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if children == nil {
		children = []subscription.Child{}
	}
	response.OK(c, "Children retrieved successfully", gin.H{"children": children, "count": len(children)})
}

func (h *SubscriptionHandler) AddChild(c *gin.Context) {
	var child subscription.Child
	if !bind(c, &child) {
		return
	}
	added, err := h.subs.AddChild(c.Request.Context(), caller(c), child)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Child added successfully", added)
}
