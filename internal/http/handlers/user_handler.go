// README: Rider profile handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/modules/user"
	"londa/internal/types"
)

type UserHandler struct {
	users *user.Service
}

func NewUserHandler(svc *user.Service) *UserHandler {
	return &UserHandler{users: svc}
}

type createUserReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	UserType string `json:"userType" binding:"required"`
}

func (h *UserHandler) CreateAccount(c *gin.Context) {
	var req createUserReq
	if !bind(c, &req) {
		return
	}
	u, err := h.users.CreateAccount(c.Request.Context(), user.CreateAccountCommand{
		UserID:   caller(c),
		Name:     req.Name,
		Email:    req.Email,
		UserType: user.Type(req.UserType),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Account created successfully", u)
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile retrieved successfully", u)
}

type updateProfileReq struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileReq
	if !bind(c, &req) {
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), user.UpdateProfileCommand{
		UserID: caller(c),
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile updated successfully", u)
}

type locationReq struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (r locationReq) point() types.Point {
	return types.Point{Lat: *r.Latitude, Lng: *r.Longitude}
}

func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if !bind(c, &req) {
		return
	}
	u, err := h.users.UpdateLocation(c.Request.Context(), caller(c), req.point())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Location updated successfully", gin.H{"location": u.Location})
}
