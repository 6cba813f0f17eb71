package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/sse"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *sse.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log: log.With("handler", "RealtimeHandler"),
		Hub: hub,
	}
}

// Stream opens the outbound event feed. Channels come from the
// ?channels= query parameter; every client also gets the shared history
// channel.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	client := h.Hub.NewSSEClient()

	h.Hub.AddChannel(client, sse.HistoryChannel)
	for _, ch := range strings.Split(c.Query("channels"), ",") {
		h.Hub.AddChannel(client, strings.TrimSpace(ch))
	}

	h.Log.Info("SSE stream open", "client_id", client.ID)
	h.Hub.ServeHTTP(c.Writer, c.Request, client)
	h.Hub.CloseClient(client)
	h.Log.Info("SSE stream closed", "client_id", client.ID)
}
