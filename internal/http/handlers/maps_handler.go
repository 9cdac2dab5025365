// README: Geocoding and directions passthrough to the mapping provider.
package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/maps"
	"londa/internal/modules/location"
	"londa/internal/types"
)

type MapsHandler struct {
	routes *maps.RouteService
	places *maps.PlacesService
}

func NewMapsHandler(routes *maps.RouteService, places *maps.PlacesService) *MapsHandler {
	return &MapsHandler{routes: routes, places: places}
}

type placeView struct {
	Location         types.Point `json:"location"`
	FormattedAddress string      `json:"formattedAddress"`
	PlaceID          string      `json:"placeId"`
}

func (h *MapsHandler) writePlace(c *gin.Context, p *maps.Place, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if p == nil {
		response.Error(c, fmt.Errorf("%w: no matching place", response.ErrNotFound))
		return
	}
	response.OK(c, "Place resolved successfully", placeView{
		Location:         p.Location,
		FormattedAddress: p.FormattedAddress,
		PlaceID:          p.PlaceID,
	})
}

func (h *MapsHandler) Geocode(c *gin.Context) {
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		response.Error(c, fmt.Errorf("%w: address is required", response.ErrValidation))
		return
	}
	p, err := h.places.Geocode(c.Request.Context(), address)
	h.writePlace(c, p, err)
}

func (h *MapsHandler) ReverseGeocode(c *gin.Context) {
	pt, err := queryPoint(c)
	if err == nil {
		err = location.ValidatePoint(pt)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.places.ReverseGeocode(c.Request.Context(), pt)
	h.writePlace(c, p, err)
}

type stepView struct {
	Instruction     string  `json:"instruction"`
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes float64 `json:"durationMinutes"`
}

func (h *MapsHandler) Directions(c *gin.Context) {
	var pts [2]types.Point
	for i, prefix := range []string{"origin", "destination"} {
		lat, err := queryFloat(c, prefix+"_latitude", 0, true)
		if err != nil {
			response.Error(c, err)
			return
		}
		lng, err := queryFloat(c, prefix+"_longitude", 0, true)
		if err != nil {
			response.Error(c, err)
			return
		}
		pts[i] = types.Point{Lat: lat, Lng: lng}
		if err := location.ValidatePoint(pts[i]); err != nil {
			response.Error(c, fmt.Errorf("%s: %w", prefix, err))
			return
		}
	}
	d, err := h.routes.Directions(c.Request.Context(), pts[0], pts[1])
	if err != nil {
		response.Error(c, err)
		return
	}
	steps := make([]stepView, 0, len(d.Steps))
	for _, s := range d.Steps {
		steps = append(steps, stepView{Instruction: s.Instruction, DistanceKm: s.DistanceKm, DurationMinutes: s.Duration.Minutes()})
	}
	response.OK(c, "Directions retrieved successfully", gin.H{
		"distanceKm":      d.DistanceKm,
		"durationMinutes": d.Duration.Minutes(),
		"startAddress":    d.StartAddress,
		"endAddress":      d.EndAddress,
		"steps":           steps,
	})
}
