package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/peertalk/peertalk/db"
	"github.com/peertalk/peertalk/service/notify"
	"github.com/peertalk/peertalk/service/security"
	"github.com/peertalk/peertalk/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	queries := &db.Queries{DB: gormDB}
	require.NoError(t, queries.AutoMigration())

	config := &util.Config{
		BaseURL:                "localhost:8080",
		SecretKey:              []byte("test-secret-key"),
		TokenExpiration:        time.Hour,
		RefreshTokenExpiration: time.Hour * 24,
		MaxRequest:             1000,
		RefillRate:             time.Second,
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	server := NewServer(queries, config, notify.NewHub(), nil, logger)
	server.RegisterHandler()
	return server
}

func createTestUser(t *testing.T, server *Server, name, email string, role db.Role) (*db.User, string) {
	t.Helper()

	user := db.User{
		Name:         name,
		Email:        email,
		Password:     "not-a-real-hash",
		Role:         role,
		TokenVersion: 1,
	}
	require.NoError(t, server.queries.DB.Create(&user).Error)

	token, err := server.jwtService.CreateToken(user.ID, user.Role, security.AccessToken, 1)
	require.NoError(t, err)
	return &user, token
}

func request(t *testing.T, server *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.mux.ServeHTTP(recorder, req)
	return recorder
}

func startChat(t *testing.T, server *Server, token string) uint {
	t.Helper()

	recorder := request(t, server, http.MethodPost, "/api/chat/start", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		ChatID uint `json:"chatId"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotZero(t, resp.ChatID)
	return resp.ChatID
}

func TestStartChatEndpoint(t *testing.T) {
	server := newTestServer(t)
	createTestUser(t, server, "Counselor One", "counselor@peertalk.com", db.RoleCounselor)
	_, userToken := createTestUser(t, server, "John Doe", "john@example.com", db.RoleUser)

	// Anonymous starts get a fresh chat every time
	anonFirst := startChat(t, server, "")
	anonSecond := startChat(t, server, "")
	require.NotEqual(t, anonFirst, anonSecond)

	// Registered starts resume the open chat
	userFirst := startChat(t, server, userToken)
	userSecond := startChat(t, server, userToken)
	require.Equal(t, userFirst, userSecond)
}

func TestGetMessagesEndpoint(t *testing.T) {
	server := newTestServer(t)
	createTestUser(t, server, "Counselor One", "counselor@peertalk.com", db.RoleCounselor)
	_, userToken := createTestUser(t, server, "John Doe", "john@example.com", db.RoleUser)

	userChat := startChat(t, server, userToken)

	// Missing chatId
	recorder := request(t, server, http.MethodGet, "/api/chat/messages", "", nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// Unknown chat
	recorder = request(t, server, http.MethodGet, "/api/chat/messages?chatId=9999", "", nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	// Anonymous caller on a registered chat
	recorder = request(t, server, http.MethodGet, fmt.Sprintf("/api/chat/messages?chatId=%d", userChat), "", nil)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	// The participant sees the thread with the chat summary
	recorder = request(t, server, http.MethodGet, fmt.Sprintf("/api/chat/messages?chatId=%d", userChat), userToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Messages []db.Message `json:"messages"`
		Chat     struct {
			ID          uint `json:"id"`
			IsAnonymous bool `json:"is_anonymous"`
			Sender      *struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"sender"`
		} `json:"chat"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, userChat, resp.Chat.ID)
	require.False(t, resp.Chat.IsAnonymous)
	require.NotNil(t, resp.Chat.Sender)
	require.Equal(t, "John Doe", resp.Chat.Sender.Name)
}

func TestSendMessageEndpoint(t *testing.T) {
	server := newTestServer(t)
	_, counselorToken := createTestUser(t, server, "Counselor One", "counselor@peertalk.com", db.RoleCounselor)

	anonChat := startChat(t, server, "")

	// Missing content
	recorder := request(t, server, http.MethodPost, "/api/chat/messages", "", map[string]any{"chatId": anonChat})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// Unknown chat
	recorder = request(t, server, http.MethodPost, "/api/chat/messages", "", map[string]any{"chatId": 9999, "content": "hello"})
	require.Equal(t, http.StatusNotFound, recorder.Code)

	// Anonymous messages are born unread
	recorder = request(t, server, http.MethodPost, "/api/chat/messages", "", map[string]any{"chatId": anonChat, "content": "hello"})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Message db.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.False(t, resp.Message.IsRead)
	require.Nil(t, resp.Message.SenderID)

	// Counselor messages are born read
	recorder = request(t, server, http.MethodPost, "/api/chat/messages", counselorToken, map[string]any{"chatId": anonChat, "content": "I'm here"})
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Message.IsRead)
}

func TestMarkReadEndpoint(t *testing.T) {
	server := newTestServer(t)
	_, counselorToken := createTestUser(t, server, "Counselor One", "counselor@peertalk.com", db.RoleCounselor)
	_, userToken := createTestUser(t, server, "John Doe", "john@example.com", db.RoleUser)

	anonChat := startChat(t, server, "")
	recorder := request(t, server, http.MethodPost, "/api/chat/messages", "", map[string]any{"chatId": anonChat, "content": "I need help"})
	require.Equal(t, http.StatusOK, recorder.Code)

	// No session at all is rejected by the middleware
	recorder = request(t, server, http.MethodPost, "/api/chat/read", "", map[string]any{"chatId": anonChat})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	// A USER session is not a counselor
	recorder = request(t, server, http.MethodPost, "/api/chat/read", userToken, map[string]any{"chatId": anonChat})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Missing chatId
	recorder = request(t, server, http.MethodPost, "/api/chat/read", counselorToken, map[string]any{})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// The counselor flips the inbound message
	recorder = request(t, server, http.MethodPost, "/api/chat/read", counselorToken, map[string]any{"chatId": anonChat})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Success         bool  `json:"success"`
		MessagesUpdated int64 `json:"messagesUpdated"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, int64(1), resp.MessagesUpdated)

	// Reapplying is a no-op, not an error
	recorder = request(t, server, http.MethodPost, "/api/chat/read", counselorToken, map[string]any{"chatId": anonChat})
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, int64(0), resp.MessagesUpdated)
}

func TestCounselorChatsEndpoint(t *testing.T) {
	server := newTestServer(t)
	_, counselorToken := createTestUser(t, server, "Counselor One", "counselor@peertalk.com", db.RoleCounselor)
	_, userToken := createTestUser(t, server, "John Doe", "john@example.com", db.RoleUser)

	userChat := startChat(t, server, userToken)
	anonChat := startChat(t, server, "")

	recorder := request(t, server, http.MethodPost, "/api/chat/messages", userToken, map[string]any{"chatId": userChat, "content": "Hi, I'm John."})
	require.Equal(t, http.StatusOK, recorder.Code)
	recorder = request(t, server, http.MethodPost, "/api/chat/messages", "", map[string]any{"chatId": anonChat, "content": "Hi, anonymous here."})
	require.Equal(t, http.StatusOK, recorder.Code)

	// Counselor-only surface
	recorder = request(t, server, http.MethodGet, "/api/counselor/chats", "", nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	recorder = request(t, server, http.MethodGet, "/api/counselor/chats", userToken, nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = request(t, server, http.MethodGet, "/api/counselor/chats", counselorToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Chats []struct {
			ID          uint      `json:"id"`
			IsAnonymous bool      `json:"is_anonymous"`
			UpdatedAt   time.Time `json:"updated_at"`
			Messages    []struct {
				Content string `json:"content"`
				IsRead  bool   `json:"is_read"`
			} `json:"messages"`
		} `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Len(t, resp.Chats, 2)

	// Most recently updated chat first
	require.Equal(t, anonChat, resp.Chats[0].ID)
	require.Len(t, resp.Chats[0].Messages, 1)
	require.False(t, resp.Chats[0].Messages[0].IsRead)
}

func TestCloseChatEndpoint(t *testing.T) {
	server := newTestServer(t)
	_, counselorToken := createTestUser(t, server, "Counselor One", "counselor@peertalk.com", db.RoleCounselor)

	anonChat := startChat(t, server, "")

	recorder := request(t, server, http.MethodPost, "/api/chat/close", counselorToken, map[string]any{"chatId": anonChat})
	require.Equal(t, http.StatusOK, recorder.Code)

	// Closed chats drop out of the inbox
	recorder = request(t, server, http.MethodGet, "/api/counselor/chats", counselorToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Chats []any `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Empty(t, resp.Chats)
}
