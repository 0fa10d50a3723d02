package rest

import (
	"net/http"

	"github.com/emberveil-online/guildserver/game/raid"
	mw "github.com/emberveil-online/guildserver/middleware"
	"github.com/gin-gonic/gin"
)

// RaidHandler exposes the raid coordinator.
type RaidHandler struct {
	raids *raid.Service
}

// NewRaidHandler creates a RaidHandler.
func NewRaidHandler(raids *raid.Service) *RaidHandler {
	return &RaidHandler{raids: raids}
}

type startRaidRequest struct {
	Template   string `json:"template"   binding:"required"`
	Level      int    `json:"level"`
	Difficulty string `json:"difficulty"`
}

// Start handles POST /api/guilds/:id/raids.
func (h *RaidHandler) Start(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req startRaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.raids.Start(c.Request.Context(), guildID, req.Template, req.Level, req.Difficulty)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// Join handles POST /api/raids/:id/join.
func (h *RaidHandler) Join(c *gin.Context) {
	raidID, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.raids.Join(c.Request.Context(), raidID, mw.GetCharID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type damageRequest struct {
	Damage int64 `json:"damage" binding:"required,gt=0"`
}

// Damage handles POST /api/raids/:id/damage.
func (h *RaidHandler) Damage(c *gin.Context) {
	raidID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req damageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.raids.DamageBoss(c.Request.Context(), raidID, mw.GetCharID(c), req.Damage)
	if err != nil {
		respondErr(c, err)
		return
	}
	body := gin.H{"raid": res.Raid, "killed": res.Killed}
	if res.Killed {
		body["rewards"] = res.Rewards
		body["participants"] = res.Participants
	}
	c.JSON(http.StatusOK, body)
}

// Detail handles GET /api/raids/:id.
func (h *RaidHandler) Detail(c *gin.Context) {
	raidID, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.raids.Get(c.Request.Context(), raidID)
	if err != nil {
		respondErr(c, err)
		return
	}
	participants, err := h.raids.Participants(c.Request.Context(), raidID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raid": r, "participants": participants})
}

// List handles GET /api/guilds/:id/raids.
func (h *RaidHandler) List(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	raids, err := h.raids.ListByGuild(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raids": raids})
}
