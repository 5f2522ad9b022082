package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realestate/server/config"
	"realestate/server/internal/models"
)

type AgentRequest struct {
	Initials string `json:"initials"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Office   string `json:"office"`
}

func (h *Handler) ListAgents(c *gin.Context) {
	agents, err := h.db.ListAgents(c.Request.Context())
	if err != nil {
		h.respondDBError(c, err, "agents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents, "offices": config.Offices})
}

// SaveAgent creates an agent or updates the one with the same initials
func (h *Handler) SaveAgent(c *gin.Context) {
	var req AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	initials := strings.ToUpper(strings.TrimSpace(req.Initials))
	name := strings.TrimSpace(req.Name)
	if initials == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Initials and name are required"})
		return
	}
	if len(initials) > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Initials must be at most 10 characters"})
		return
	}

	office := config.DefaultOffice()
	if strings.TrimSpace(req.Office) != "" {
		known, ok := config.GetOfficeByName(req.Office)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown office"})
			return
		}
		office = known
	}

	agent, created, err := h.db.UpsertAgent(c.Request.Context(), models.Agent{
		Initials: initials,
		Name:     name,
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Office:   office,
	})
	if err != nil {
		h.respondDBError(c, err, "agent")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, agent)
}

func (h *Handler) DeleteAgent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteAgent(c.Request.Context(), id); err != nil {
		h.respondDBError(c, err, "agent")
		return
	}
	c.Status(http.StatusNoContent)
}
