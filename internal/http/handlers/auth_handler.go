// README: Phone OTP login and token refresh for riders and drivers.
package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"londa/internal/http/middleware"
	"londa/internal/http/response"
	"londa/internal/modules/identity"
)

type AuthHandler struct {
	identity *identity.Service
}

func NewAuthHandler(svc *identity.Service) *AuthHandler {
	return &AuthHandler{identity: svc}
}

type phoneReq struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type verifyReq struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	SessionInfo string `json:"sessionInfo"`
}

func (h *AuthHandler) sendOTP(c *gin.Context, role, message string) {
	var req phoneReq
	if !bind(c, &req) {
		return
	}
	ch, err := h.identity.SendOTP(c.Request.Context(), req.PhoneNumber, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message, gin.H{
		"sessionInfo": ch.SessionInfo,
		"expiresIn":   int(ch.ExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) verify(c *gin.Context, role string) (*identity.Login, bool) {
	var req verifyReq
	if !bind(c, &req) {
		return nil, false
	}
	login, err := h.identity.VerifyOTP(c.Request.Context(), identity.VerifyCommand{
		Phone:       req.PhoneNumber,
		Code:        req.OTP,
		SessionInfo: req.SessionInfo,
		Role:        role,
	})
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return login, true
}

// Registration starts a rider OTP challenge.
func (h *AuthHandler) Registration(c *gin.Context) {
	h.sendOTP(c, identity.RoleUser, "OTP sent successfully")
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	if login, ok := h.verify(c, identity.RoleUser); ok {
		response.OK(c, "OTP verified successfully", login)
	}
}

func (h *AuthHandler) DriverSendOTP(c *gin.Context) {
	h.sendOTP(c, identity.RoleDriver, "OTP sent to driver phone")
}

func (h *AuthHandler) DriverVerifyOTP(c *gin.Context) {
	if login, ok := h.verify(c, identity.RoleDriver); ok {
		response.OK(c, "Driver OTP verified successfully", login)
	}
}

// DriverLogin is the verify step under the name older driver apps call.
func (h *AuthHandler) DriverLogin(c *gin.Context) {
	if login, ok := h.verify(c, identity.RoleDriver); ok {
		response.OK(c, "Driver login successful", gin.H{
			"accessToken": login.AccessToken,
			"driver":      login.Profile,
		})
	}
}

// RefreshToken accepts the previous, possibly expired, token in the
// Authorization header or in the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		var body struct {
			Token string `json:"token"`
		}
		_ = c.ShouldBindJSON(&body)
		raw = body.Token
	}
	if raw == "" {
		response.Error(c, fmt.Errorf("%w: token is required", response.ErrUnauthenticated))
		return
	}
	login, err := h.identity.Refresh(c.Request.Context(), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Token refreshed successfully", login)
}
