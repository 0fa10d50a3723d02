package rest

import (
	"net/http"
	"time"

	"github.com/emberveil-online/guildserver/game/event"
	mw "github.com/emberveil-online/guildserver/middleware"
	"github.com/emberveil-online/guildserver/model"
	"github.com/gin-gonic/gin"
)

// EventHandler exposes the event scheduler.
type EventHandler struct {
	events *event.Service
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events *event.Service) *EventHandler {
	return &EventHandler{events: events}
}

type createEventRequest struct {
	Name            string                  `json:"name"             binding:"required,min=2,max=64"`
	Type            string                  `json:"type"             binding:"required"`
	Description     string                  `json:"description"      binding:"max=500"`
	StartsAt        time.Time               `json:"starts_at"        binding:"required"`
	EndsAt          time.Time               `json:"ends_at"          binding:"required"`
	MaxParticipants int                     `json:"max_participants" binding:"required,gt=0"`
	Requirements    model.EventRequirements `json:"requirements"`
	Rewards         model.RewardSchedule    `json:"rewards"`
}

// Create handles POST /api/guilds/:id/events.
func (h *EventHandler) Create(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := h.events.Create(c.Request.Context(), guildID, mw.GetCharID(c),
		req.Name, req.Type, req.Description, req.StartsAt, req.EndsAt,
		req.MaxParticipants, req.Requirements, req.Rewards)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// Join handles POST /api/events/:id/join.
func (h *EventHandler) Join(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.events.Join(c.Request.Context(), eventID, mw.GetCharID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Cancel handles POST /api/events/:id/cancel.
func (h *EventHandler) Cancel(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.events.Cancel(c.Request.Context(), eventID, mw.GetCharID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancelled"})
}

// ListUpcoming handles GET /api/guilds/:id/events.
func (h *EventHandler) ListUpcoming(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.events.ListUpcoming(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
