package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/peertalk/peertalk/service/chat"
	"github.com/peertalk/peertalk/service/worker"
)

// Helper to map a chat service error to an HTTP status
func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (server *Server) chatError(ctx *gin.Context, route string, err error) {
	status := chatErrorStatus(err)
	if status == http.StatusInternalServerError {
		server.logger.Error(route+": store failure", "error", err)
		ctx.JSON(status, ErrorResponse{"Internal server error"})
		return
	}
	ctx.JSON(status, ErrorResponse{err.Error()})
}

// Handler for starting a chat, or resuming the caller's open one
func (server *Server) HandleStartChat(ctx *gin.Context) {
	session := sessionFromContext(ctx)

	openChat, err := server.chats.StartOrResume(ctx.Request.Context(), session)
	if err != nil {
		server.chatError(ctx, "POST /api/chat/start", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"chatId": openChat.ID})
}

// Handler for listing the messages of a chat
func (server *Server) HandleGetMessages(ctx *gin.Context) {
	chatID, err := strconv.ParseUint(ctx.Query("chatId"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{"ChatId is required"})
		return
	}

	session := sessionFromContext(ctx)

	thread, err := server.chats.ListMessages(ctx.Request.Context(), session, uint(chatID))
	if err != nil {
		server.chatError(ctx, "GET /api/chat/messages", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"messages": thread.Messages,
		"chat":     thread.Chat,
	})
}

type SendMessageRequest struct {
	ChatID  uint   `json:"chatId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Handler for appending a message to a chat
func (server *Server) HandleSendMessage(ctx *gin.Context) {
	// Get the request body and validate
	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{"ChatId and content are required"})
		return
	}

	session := sessionFromContext(ctx)

	message, err := server.chats.AppendMessage(ctx.Request.Context(), session, req.ChatID, req.Content)
	if err != nil {
		server.chatError(ctx, "POST /api/chat/messages", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": message})

	// A message born unread came from the non-counselor party; alert the
	// chat's counselor in the background
	if message.IsRead || server.distributor == nil {
		return
	}

	receiverID, ok := server.chats.ReceiverOf(ctx.Request.Context(), req.ChatID)
	if !ok {
		return
	}

	err = server.distributor.DistributeTaskNotifyCounselor(context.Background(), worker.NotifyCounselorPayload{
		ChatID:  req.ChatID,
		DestID:  receiverID,
		Content: "New message waiting in one of your chats",
	})
	if err != nil {
		server.logger.Error("POST /api/chat/messages: failed to create task: notify counselor", "error", err)
	}
}

type MarkReadRequest struct {
	ChatID uint `json:"chatId" binding:"required"`
}

// Handler for marking a chat's inbound messages as read
func (server *Server) HandleMarkRead(ctx *gin.Context) {
	session := sessionFromContext(ctx)

	var req MarkReadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		// The role check comes first so a non-counselor gets 401, not 400
		if session == nil || !session.IsCounselor() {
			ctx.JSON(http.StatusUnauthorized, ErrorResponse{"Unauthorized"})
			return
		}
		ctx.JSON(http.StatusBadRequest, ErrorResponse{"ChatId is required"})
		return
	}

	updated, err := server.chats.MarkRead(ctx.Request.Context(), session, req.ChatID)
	if err != nil {
		server.chatError(ctx, "POST /api/chat/read", err)
		return
	}

	server.logger.Info("Marked messages as read", "chat_id", req.ChatID, "count", updated)

	ctx.JSON(http.StatusOK, gin.H{
		"success":         true,
		"messagesUpdated": updated,
	})
}

type CloseChatRequest struct {
	ChatID uint `json:"chatId" binding:"required"`
}

// Handler for closing a chat. Chats never close on their own.
func (server *Server) HandleCloseChat(ctx *gin.Context) {
	session := sessionFromContext(ctx)

	var req CloseChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		if session == nil || !session.IsCounselor() {
			ctx.JSON(http.StatusUnauthorized, ErrorResponse{"Unauthorized"})
			return
		}
		ctx.JSON(http.StatusBadRequest, ErrorResponse{"ChatId is required"})
		return
	}

	if err := server.chats.Close(ctx.Request.Context(), session, req.ChatID); err != nil {
		server.chatError(ctx, "POST /api/chat/close", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// Handler for the counselor inbox
func (server *Server) HandleCounselorChats(ctx *gin.Context) {
	session := sessionFromContext(ctx)

	chats, err := server.chats.ListCounselorChats(ctx.Request.Context(), session)
	if err != nil {
		server.chatError(ctx, "GET /api/counselor/chats", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"chats": chats})
}
