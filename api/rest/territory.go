package rest

import (
	"net/http"

	"github.com/emberveil-online/guildserver/game/territory"
	"github.com/gin-gonic/gin"
)

// TerritoryHandler exposes the territory controller.
type TerritoryHandler struct {
	territories *territory.Service
}

// NewTerritoryHandler creates a TerritoryHandler.
func NewTerritoryHandler(territories *territory.Service) *TerritoryHandler {
	return &TerritoryHandler{territories: territories}
}

type claimRequest struct {
	Name        string `json:"name"        binding:"required,min=2,max=64"`
	Type        string `json:"type"        binding:"required"`
	Coordinates string `json:"coordinates" binding:"max=32"`
	Level       int    `json:"level"`
}

// Claim handles POST /api/guilds/:id/territories.
func (h *TerritoryHandler) Claim(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	terr, err := h.territories.Claim(c.Request.Context(), guildID,
		req.Name, req.Type, req.Coordinates, req.Level)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, terr)
}

// List handles GET /api/guilds/:id/territories.
func (h *TerritoryHandler) List(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	terrs, err := h.territories.ListByGuild(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"territories": terrs})
}

type territoryNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// Release handles POST /api/guilds/:id/territories/release.
func (h *TerritoryHandler) Release(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req territoryNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.territories.Release(c.Request.Context(), guildID, req.Name); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "released"})
}

// Upgrade handles POST /api/guilds/:id/territories/upgrade.
func (h *TerritoryHandler) Upgrade(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req territoryNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	terr, err := h.territories.Upgrade(c.Request.Context(), guildID, req.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, terr)
}

// Production handles GET /api/guilds/:id/territories/production.
func (h *TerritoryHandler) Production(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	total, err := h.territories.TotalProduction(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, total)
}
