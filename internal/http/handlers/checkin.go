package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/questforge/roadmap-engine/internal/http/response"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/services"
)

type CheckInHandler struct {
	Log      *logger.Logger
	CheckIns services.CheckInService
}

func NewCheckInHandler(log *logger.Logger, checkIns services.CheckInService) *CheckInHandler {
	return &CheckInHandler{
		Log:      log.With("handler", "CheckInHandler"),
		CheckIns: checkIns,
	}
}

type analyzeRequest struct {
	RoadmapID string `json:"roadmap_id"`
	Message   string `json:"message"`
}

func (h *CheckInHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.RoadmapID) == "" || strings.TrimSpace(req.Message) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("roadmap_id and message required"))
		return
	}

	analysis, err := h.CheckIns.Analyze(c.Request.Context(), req.RoadmapID, req.Message)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, analysis)
}

func (h *CheckInHandler) Confirm(c *gin.Context) {
	updates, err := h.CheckIns.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"applied": updates})
}

func (h *CheckInHandler) Reject(c *gin.Context) {
	if err := h.CheckIns.Reject(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rejected": true})
}
