package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler for SSE, used to stream new-message alerts to counselors. Chat
// content itself is fetched by polling; this channel only says "look at
// your inbox".
func (server *Server) SSEHandler(ctx *gin.Context) {
	session := sessionFromContext(ctx)
	if !session.IsCounselor() {
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{"Unauthorized"})
		return
	}

	// Set header to allow SSE streaming
	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")

	// Change writer to flusher or streaming
	flusher, ok := ctx.Writer.(http.Flusher)
	if !ok {
		server.logger.Error("SSE handler: failed to type assertion from writer to flusher")
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	// Subscribe to the hub
	subscriber := server.hub.Subscribe()
	defer server.hub.Unsubscribe(subscriber)

	// Read and send notifications to client
	for noti := range subscriber {
		// Filter to check if the requester is allowed to get this notification
		if noti.DestID != session.UserID {
			continue
		}

		data, err := json.Marshal(noti)
		if err != nil {
			server.logger.Error("SSE handler: failed to marshal notification", "error", err)
			continue
		}

		fmt.Fprintf(ctx.Writer, "data: %s\n\n", data)
		flusher.Flush()
	}
}
