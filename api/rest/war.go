package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/emberveil-online/guildserver/game/war"
	"github.com/gin-gonic/gin"
)

// WarHandler exposes the war coordinator.
type WarHandler struct {
	wars *war.Service
}

// NewWarHandler creates a WarHandler.
func NewWarHandler(wars *war.Service) *WarHandler {
	return &WarHandler{wars: wars}
}

type declareWarRequest struct {
	DefenderID  int64  `json:"defender_id"  binding:"required"`
	Type        string `json:"type"         binding:"required"`
	TerritoryID int64  `json:"territory_id"`
	Hours       int    `json:"hours"        binding:"required,gt=0"`
}

// Declare handles POST /api/guilds/:id/wars.
func (h *WarHandler) Declare(c *gin.Context) {
	attackerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req declareWarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.wars.Declare(c.Request.Context(), attackerID, req.DefenderID,
		req.Type, req.TerritoryID, time.Duration(req.Hours)*time.Hour)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// Activate handles POST /api/wars/:id/activate.
func (h *WarHandler) Activate(c *gin.Context) {
	warID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.wars.Activate(c.Request.Context(), warID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "activated"})
}

type scoreRequest struct {
	GuildID int64 `json:"guild_id" binding:"required"`
	Points  int64 `json:"points"   binding:"required,gt=0"`
}

// Score handles POST /api/wars/:id/score.
func (h *WarHandler) Score(c *gin.Context) {
	warID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.wars.AddScore(c.Request.Context(), warID, req.GuildID, req.Points); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scored"})
}

// Resolve handles POST /api/wars/:id/resolve.
func (h *WarHandler) Resolve(c *gin.Context) {
	warID, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := h.wars.Resolve(c.Request.Context(), warID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// ListActive handles GET /api/wars.
func (h *WarHandler) ListActive(c *gin.Context) {
	guildID, _ := strconv.ParseInt(c.DefaultQuery("guild_id", "0"), 10, 64)
	wars, err := h.wars.ListActive(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wars": wars})
}
