package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/questforge/roadmap-engine/internal/clients/questforge"
	"github.com/questforge/roadmap-engine/internal/http/response"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/services"
)

type RoadmapHandler struct {
	Log        *logger.Logger
	Roadmaps   services.RoadmapService
	Generation services.GenerationService
}

func NewRoadmapHandler(log *logger.Logger, roadmaps services.RoadmapService, generation services.GenerationService) *RoadmapHandler {
	return &RoadmapHandler{
		Log:        log.With("handler", "RoadmapHandler"),
		Roadmaps:   roadmaps,
		Generation: generation,
	}
}

type generateRequest struct {
	Goal     string `json:"goal"`
	ThreadID string `json:"thread_id,omitempty"`
}

func (h *RoadmapHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Goal) == "" && strings.TrimSpace(req.ThreadID) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("goal or thread_id required"))
		return
	}

	sessionID, err := h.Generation.Start(c.Request.Context(), req.Goal, req.ThreadID)
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "generation_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID})
}

func (h *RoadmapHandler) GetActive(c *gin.Context) {
	view, err := h.Roadmaps.ActiveView(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *RoadmapHandler) List(c *gin.Context) {
	history := h.Roadmaps.History(c.Request.Context())
	response.RespondOK(c, gin.H{"roadmaps": history})
}

func (h *RoadmapHandler) RefreshHistory(c *gin.Context) {
	if err := h.Roadmaps.RefreshHistory(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"roadmaps": h.Roadmaps.History(c.Request.Context())})
}

func (h *RoadmapHandler) Get(c *gin.Context) {
	view, err := h.Roadmaps.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *RoadmapHandler) Load(c *gin.Context) {
	view, err := h.Roadmaps.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *RoadmapHandler) GetHierarchy(c *gin.Context) {
	hierarchy, err := h.Roadmaps.GetHierarchy(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, hierarchy)
}

func (h *RoadmapHandler) Sync(c *gin.Context) {
	synced, err := h.Roadmaps.Sync(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"synced": synced})
}

func (h *RoadmapHandler) Delete(c *gin.Context) {
	if err := h.Roadmaps.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

type selectNodeRequest struct {
	NodeID string `json:"node_id"`
}

func (h *RoadmapHandler) SelectNode(c *gin.Context) {
	var req selectNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.Roadmaps.SelectNode(req.NodeID); err != nil {
		if errors.Is(err, services.ErrRoadmapNotFound) {
			response.RespondError(c, http.StatusNotFound, "not_found", err)
		} else {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		}
		return
	}
	response.RespondOK(c, gin.H{"selected": req.NodeID})
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoadmapNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrCheckInNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	default:
		var herr *questforge.HTTPError
		if errors.As(err, &herr) {
			response.RespondError(c, http.StatusBadGateway, "upstream_error", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
