package rest

import (
	"net/http"

	"github.com/emberveil-online/guildserver/game/project"
	mw "github.com/emberveil-online/guildserver/middleware"
	"github.com/gin-gonic/gin"
)

// ProjectHandler exposes the project coordinator.
type ProjectHandler struct {
	projects *project.Service
}

// NewProjectHandler creates a ProjectHandler.
func NewProjectHandler(projects *project.Service) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type startProjectRequest struct {
	Template string `json:"template" binding:"required"`
	Level    int    `json:"level"`
}

// Start handles POST /api/guilds/:id/projects.
func (h *ProjectHandler) Start(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req startProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proj, err := h.projects.Start(c.Request.Context(), guildID, req.Template, req.Level)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, proj)
}

type contributeRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Contribute handles POST /api/projects/:id/contribute.
func (h *ProjectHandler) Contribute(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proj, err := h.projects.Contribute(c.Request.Context(), projectID, mw.GetCharID(c), req.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// List handles GET /api/guilds/:id/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	guildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	projects, err := h.projects.ListByGuild(c.Request.Context(), guildID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}
