// README: Driver handlers: profile, availability, location and the ride actions.
package handlers

import (
	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/modules/driver"
	"londa/internal/modules/matching"
	"londa/internal/modules/ride"
	"londa/internal/types"
)

type DriverHandler struct {
	drivers  *driver.Service
	rides    *ride.Service
	matching *matching.Service
}

func NewDriverHandler(drivers *driver.Service, rides *ride.Service, matchingSvc *matching.Service) *DriverHandler {
	return &DriverHandler{drivers: drivers, rides: rides, matching: matchingSvc}
}

type createDriverReq struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email"`
	LicenseNumber string `json:"license_number" binding:"required"`
	VehicleModel  string `json:"vehicle_model" binding:"required"`
	VehiclePlate  string `json:"vehicle_plate" binding:"required"`
	VehicleColor  string `json:"vehicle_color" binding:"required"`
}

func (h *DriverHandler) CreateAccount(c *gin.Context) {
	var req createDriverReq
	if !bind(c, &req) {
		return
	}
	d, err := h.drivers.CreateAccount(c.Request.Context(), driver.CreateAccountCommand{
		DriverID: caller(c),
		Profile: driver.Profile{
			Name:          req.Name,
			Email:         req.Email,
			LicenseNumber: req.LicenseNumber,
			VehicleModel:  req.VehicleModel,
			VehiclePlate:  req.VehiclePlate,
			VehicleColor:  req.VehicleColor,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Driver account created successfully", d)
}

func (h *DriverHandler) Me(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Driver profile retrieved successfully", d)
}

func (h *DriverHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	d, err := h.drivers.UpdateStatus(c.Request.Context(), caller(c), driver.Status(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Driver status updated successfully", gin.H{"status": d.Status})
}

type driverLocationReq struct {
	locationReq
	Status *string `json:"status"`
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req driverLocationReq
	if !bind(c, &req) {
		return
	}
	cmd := driver.UpdateLocationCommand{DriverID: caller(c), Location: req.point()}
	if req.Status != nil {
		st := driver.Status(*req.Status)
		cmd.Status = &st
	}
	d, err := h.drivers.UpdateLocation(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Driver location updated successfully", gin.H{
		"location": d.Location,
		"status":   d.Status,
	})
}

func (h *DriverHandler) AvailableRides(c *gin.Context) {
	limit, err := queryInt(c, "limit", matching.DefaultAvailableLimit, 1, ride.MaxPageLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	rides, err := h.matching.AvailableRides(c.Request.Context(), caller(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Available rides retrieved successfully", gin.H{
		"rides": toRideViews(rides),
		"count": len(rides),
	})
}

type rideActionReq struct {
	RideID string `json:"rideId"`
}

func (h *DriverHandler) rideID(c *gin.Context, req *rideActionReq) (types.ID, bool) {
	if !bind(c, req) {
		return "", false
	}
	return requireID(c, "rideId", req.RideID)
}

func (h *DriverHandler) Accept(c *gin.Context) {
	var req rideActionReq
	id, ok := h.rideID(c, &req)
	if !ok {
		return
	}
	r, err := h.rides.Accept(c.Request.Context(), ride.AcceptCommand{RideID: id, DriverID: caller(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride accepted successfully", toRideView(r))
}

func (h *DriverHandler) Decline(c *gin.Context) {
	var req struct {
		RideID string `json:"rideId"`
		Reason string `json:"reason"`
	}
	if !bind(c, &req) {
		return
	}
	id, ok := requireID(c, "rideId", req.RideID)
	if !ok {
		return
	}
	err := h.matching.Decline(c.Request.Context(), matching.DeclineCommand{RideID: id, DriverID: caller(c), Reason: req.Reason})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride declined successfully", gin.H{"rideId": id})
}

func (h *DriverHandler) Start(c *gin.Context) {
	var req rideActionReq
	id, ok := h.rideID(c, &req)
	if !ok {
		return
	}
	r, err := h.rides.Start(c.Request.Context(), ride.StartCommand{RideID: id, DriverID: caller(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride started successfully", toRideView(r))
}

func (h *DriverHandler) Complete(c *gin.Context) {
	var req struct {
		RideID    string   `json:"rideId"`
		FinalFare *float64 `json:"final_fare"`
	}
	if !bind(c, &req) {
		return
	}
	id, ok := requireID(c, "rideId", req.RideID)
	if !ok {
		return
	}
	cmd := ride.CompleteCommand{RideID: id, DriverID: caller(c)}
	if req.FinalFare != nil {
		// Currency is taken from the ride's estimate.
		fare := types.NewMoney(*req.FinalFare, "")
		cmd.FinalFare = &fare
	}
	r, err := h.rides.Complete(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride completed successfully", toRideView(r))
}

func (h *DriverHandler) GetRides(c *gin.Context) {
	q, err := pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.rides.ListForDriver(c.Request.Context(), caller(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Driver rides retrieved successfully", toRidePage(p))
}
