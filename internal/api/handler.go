package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Minglarn/trafikinfo-sub001/internal/event"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
	"github.com/Minglarn/trafikinfo-sub001/internal/prefs"
	"github.com/Minglarn/trafikinfo-sub001/internal/reconciler"
	"github.com/Minglarn/trafikinfo-sub001/pkg/errors"
)

// Kicker schedules an immediate snapshot refresh.
type Kicker interface {
	Kick()
}

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	rec     *reconciler.Service
	store   prefs.Store
	refresh Kicker
}

func NewHandler(rec *reconciler.Service, store prefs.Store, refresh Kicker, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		rec:         rec,
		store:       store,
		refresh:     refresh,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/events", h.ListEvents)
		v1.GET("/counties", h.GetCounties)
		v1.PUT("/counties", h.PutCounties)
	}
}

// EventsResponse is the reconciled feed handed to renderers. Notice carries
// the most recent snapshot failure, if any; the events themselves are the
// last known good collection.
type EventsResponse struct {
	Events []event.Event `json:"events"`
	Total  int           `json:"total"`
	Notice string        `json:"notice,omitempty"`
}

type CountiesRequest struct {
	Counties []int `json:"counties"`
}

type CountiesResponse struct {
	Counties []int `json:"counties"`
}

// ListEvents serves the search-filtered view over the canonical collection.
// Query parameters: search, limit, offset, counties (CSV), type.
func (h *Handler) ListEvents(c *gin.Context) {
	events := h.rec.View(c.Query("search"))

	if countiesParam := c.Query("counties"); countiesParam != "" {
		allowed, err := parseCounties(countiesParam)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		events = filterByCounties(events, allowed)
	}

	if msgType := c.Query("type"); msgType != "" {
		events = filterByType(events, msgType)
	}

	total := len(events)
	events = paginate(events, c.Query("offset"), c.Query("limit"))

	resp := EventsResponse{
		Events: events,
		Total:  total,
	}
	if err := h.rec.LastFetchError(); err != nil {
		resp.Notice = "event data may be stale: last refresh failed"
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetCounties(c *gin.Context) {
	counties := h.rec.MonitoredCounties()
	sort.Ints(counties)
	c.JSON(http.StatusOK, CountiesResponse{Counties: counties})
}

// PutCounties persists the monitored set, fences out any in-flight snapshot
// and schedules a fetch for the new filter.
func (h *Handler) PutCounties(c *gin.Context) {
	var req CountiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if err := h.store.Save(c.Request.Context(), req.Counties); err != nil {
		h.HandleError(c, errors.Wrap(err, errors.ErrInternal))
		return
	}

	generation := h.rec.SetMonitoredCounties(req.Counties)
	h.refresh.Kick()

	h.Logger.InfowCtx(c.Request.Context(), "Monitored counties updated",
		"counties", req.Counties,
		"generation", generation,
	)

	counties := h.rec.MonitoredCounties()
	sort.Ints(counties)
	c.JSON(http.StatusOK, CountiesResponse{Counties: counties})
}

func parseCounties(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	counties := make([]int, 0, len(parts))
	for _, part := range parts {
		county, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.ErrValidation.
				WithDetail("message", "counties must be a comma-separated list of integers").
				WithCause(err)
		}
		counties = append(counties, county)
	}
	return counties, nil
}

func filterByCounties(events []event.Event, allowed []int) []event.Event {
	set := make(map[int]struct{}, len(allowed))
	for _, c := range allowed {
		set[c] = struct{}{}
	}

	out := make([]event.Event, 0, len(events))
	for _, ev := range events {
		if _, ok := set[ev.CountyID]; ok {
			out = append(out, ev)
		}
	}
	return out
}

func filterByType(events []event.Event, msgType string) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, ev := range events {
		if strings.EqualFold(ev.MessageType, msgType) {
			out = append(out, ev)
		}
	}
	return out
}

func paginate(events []event.Event, offsetParam, limitParam string) []event.Event {
	offset := 0
	if offsetParam != "" {
		if v, err := strconv.Atoi(offsetParam); err == nil && v > 0 {
			offset = v
		}
	}
	if offset >= len(events) {
		return []event.Event{}
	}
	events = events[offset:]

	if limitParam != "" {
		if v, err := strconv.Atoi(limitParam); err == nil && v >= 0 && v < len(events) {
			events = events[:v]
		}
	}
	return events
}
