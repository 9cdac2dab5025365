// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"londa/internal/http/handlers"
	"londa/internal/http/middleware"
	"londa/internal/http/response"
	"londa/internal/modules/identity"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging(), middleware.Metrics())
	if deps.NewRelic != nil {
		r.Use(nrgin.Middleware(deps.NewRelic))
	}
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.CodeNotFound, "route not found", nil)
	})

	health := func(c *gin.Context) {
		response.OK(c, "ok", gin.H{"status": "healthy"})
	}
	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authH := handlers.NewAuthHandler(deps.Identity)
	userH := handlers.NewUserHandler(deps.Users)
	rideH := handlers.NewRideHandler(deps.Rides, deps.Matching, deps.History, deps.Updates)
	driverH := handlers.NewDriverHandler(deps.Drivers, deps.Rides, deps.Matching)
	paymentH := handlers.NewPaymentHandler(deps.Payments)
	subH := handlers.NewSubscriptionHandler(deps.Subscriptions)
	analyticsH := handlers.NewAnalyticsHandler(deps.Analytics)
	notifyH := handlers.NewNotificationHandler(deps.Notifications)
	mapsH := handlers.NewMapsHandler(deps.Routes, deps.Places)

	v1 := r.Group("/api/v1")
	v1.GET("/health", health)
	v1.POST("/registration", authH.Registration)
	v1.POST("/verify-otp", authH.VerifyOTP)
	v1.POST("/refresh-token", authH.RefreshToken)
	v1.POST("/driver/send-otp", authH.DriverSendOTP)
	v1.POST("/driver/verify-otp", authH.DriverVerifyOTP)
	v1.POST("/driver/login", authH.DriverLogin)

	authed := v1.Group("", middleware.Auth(deps.Verifier))
	if deps.Idempotency != nil {
		authed.Use(middleware.Idempotency(deps.Idempotency))
	}

	authed.POST("/create-account", userH.CreateAccount)
	authed.GET("/me", userH.Me)
	authed.PUT("/update-profile", userH.UpdateProfile)
	authed.POST("/update-location", userH.UpdateLocation)
	authed.POST("/notifications/token", notifyH.RegisterToken)

	authed.POST("/request-ride", rideH.RequestRide)
	authed.POST("/cancel-ride", rideH.CancelRide)
	authed.PUT("/rate-ride", rideH.RateRide)
	authed.GET("/ride-status/:id", rideH.RideStatus)
	authed.GET("/get-rides", rideH.GetRides)
	authed.GET("/nearby-drivers", rideH.NearbyDrivers)
	authed.GET("/rides/:id/events", rideH.RideEvents)
	authed.GET("/rides/:id/stream", rideH.RideStream)

	authed.POST("/payment/calculate-fare", paymentH.CalculateFare)
	authed.POST("/payment/process", paymentH.Process)
	authed.GET("/payment/history", paymentH.History)

	authed.GET("/analytics/rides", analyticsH.RiderRides)
	authed.GET("/analytics/performance", analyticsH.RiderPerformance)

	authed.POST("/parent/subscribe", subH.Subscribe)
	authed.GET("/parent/subscription", subH.ParentStatus)
	authed.PUT("/parent/subscription", subH.UpdateParent)
	authed.DELETE("/parent/subscription", subH.CancelParent)
	authed.GET("/parent/usage", analyticsH.ParentUsage)
	authed.GET("/parent/children", subH.Children)
	authed.POST("/parent/children", subH.AddChild)

	authed.GET("/maps/geocode", mapsH.Geocode)
	authed.GET("/maps/reverse-geocode", mapsH.ReverseGeocode)
	authed.GET("/maps/directions", mapsH.Directions)

	drv := authed.Group("/driver", middleware.RequireRole(identity.RoleDriver))
	drv.POST("/create-account", driverH.CreateAccount)
	drv.GET("/me", driverH.Me)
	drv.PUT("/update-status", driverH.UpdateStatus)
	drv.POST("/update-location", driverH.UpdateLocation)
	drv.GET("/available-rides", driverH.AvailableRides)
	drv.POST("/accept-ride", driverH.Accept)
	drv.POST("/decline-ride", driverH.Decline)
	drv.POST("/start-ride", driverH.Start)
	drv.POST("/complete-ride", driverH.Complete)
	drv.GET("/get-rides", driverH.GetRides)

	drv.POST("/subscription", subH.CreateDriver)
	drv.GET("/subscription", subH.DriverStatus)
	drv.PUT("/subscription", subH.UpdateDriver)
	drv.POST("/subscription/payment", subH.DriverPayment)
	drv.GET("/subscription/history", subH.DriverPaymentHistory)
	drv.GET("/subscription/:id", subH.DriverByID)

	drv.GET("/analytics/earnings", analyticsH.DriverEarnings)
	drv.GET("/analytics/rides", analyticsH.DriverRides)
	drv.GET("/analytics/performance", analyticsH.DriverPerformance)

	return r
}
