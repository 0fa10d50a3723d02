package rest

import (
	"net/http"
	"strconv"

	"github.com/emberveil-online/guildserver/game/guild"
	mw "github.com/emberveil-online/guildserver/middleware"
	"github.com/emberveil-online/guildserver/model"
	"github.com/gin-gonic/gin"
)

// GuildHandler exposes the guild registry.
type GuildHandler struct {
	guilds *guild.Service
}

// NewGuildHandler creates a GuildHandler.
func NewGuildHandler(guilds *guild.Service) *GuildHandler {
	return &GuildHandler{guilds: guilds}
}

type createGuildRequest struct {
	Name        string `json:"name"         binding:"required,min=2,max=32"`
	DisplayName string `json:"display_name" binding:"max=64"`
	Description string `json:"description"  binding:"max=500"`
	Emblem      string `json:"emblem"       binding:"max=64"`
	Banner      string `json:"banner"       binding:"max=64"`
}

// Create handles POST /api/guilds.
func (h *GuildHandler) Create(c *gin.Context) {
	var req createGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := h.guilds.Create(c.Request.Context(), mw.GetCharID(c),
		req.Name, req.DisplayName, req.Description, req.Emblem, req.Banner)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// Detail handles GET /api/guilds/:id.
func (h *GuildHandler) Detail(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.guilds.Get(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// List handles GET /api/guilds.
func (h *GuildHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	guilds, err := h.guilds.List(c.Request.Context(), offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guilds": guilds})
}

// Join handles POST /api/guilds/:id/join.
func (h *GuildHandler) Join(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.guilds.Join(c.Request.Context(), guildID, mw.GetCharID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Leave handles POST /api/guilds/:id/leave.
func (h *GuildHandler) Leave(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.guilds.Leave(c.Request.Context(), guildID, mw.GetCharID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

// Kick handles POST /api/guilds/:id/kick/:char_id.
func (h *GuildHandler) Kick(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "char_id")
	if !ok {
		return
	}
	if err := h.guilds.Kick(c.Request.Context(), guildID, mw.GetCharID(c), targetID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "kicked"})
}

type setRankRequest struct {
	Rank int `json:"rank" binding:"required"`
}

// SetRank handles PUT /api/guilds/:id/members/:char_id/rank.
func (h *GuildHandler) SetRank(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "char_id")
	if !ok {
		return
	}
	var req setRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.guilds.SetRank(c.Request.Context(), guildID, mw.GetCharID(c), targetID, model.GuildRank(req.Rank)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rank updated"})
}

type depositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Deposit handles POST /api/guilds/:id/deposit.
func (h *GuildHandler) Deposit(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.guilds.Deposit(c.Request.Context(), guildID, mw.GetCharID(c), req.Amount); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deposited"})
}

// TopHonor handles GET /api/guilds/ranking/honor.
func (h *GuildHandler) TopHonor(c *gin.Context) {
	n, _ := strconv.ParseInt(c.DefaultQuery("n", "10"), 10, 64)
	board, err := h.guilds.TopHonor(c.Request.Context(), n)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking": board})
}
