// Package client is a thin HTTP client for the chat API, plus the poll
// scheduler that keeps threads and the counselor inbox fresh.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a running chat server. Token may be empty for anonymous
// use.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Message mirrors the server's message JSON.
type Message struct {
	ID        uint      `json:"ID"`
	CreatedAt time.Time `json:"CreatedAt"`
	ChatID    uint      `json:"chat_id"`
	SenderID  *uint     `json:"sender_id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
}

type SenderProfile struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ChatSummary struct {
	ID          uint           `json:"id"`
	IsAnonymous bool           `json:"is_anonymous"`
	Sender      *SenderProfile `json:"sender"`
}

type Thread struct {
	Messages []Message   `json:"messages"`
	Chat     ChatSummary `json:"chat"`
}

type ChatPreview struct {
	ID          uint           `json:"id"`
	IsAnonymous bool           `json:"is_anonymous"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Sender      *SenderProfile `json:"sender"`
	Messages    []Message      `json:"messages"`
}

func (client *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, client.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if client.Token != "" {
		req.Header.Set("Authorization", "Bearer "+client.Token)
	}

	resp, err := client.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Message string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, errResp.Message)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StartChat starts or resumes a chat and returns its id.
func (client *Client) StartChat(ctx context.Context) (uint, error) {
	var resp struct {
		ChatID uint `json:"chatId"`
	}
	if err := client.do(ctx, http.MethodPost, "/api/chat/start", nil, &resp); err != nil {
		return 0, err
	}
	return resp.ChatID, nil
}

// Messages fetches the chat's thread.
func (client *Client) Messages(ctx context.Context, chatID uint) (*Thread, error) {
	var thread Thread
	path := fmt.Sprintf("/api/chat/messages?chatId=%d", chatID)
	if err := client.do(ctx, http.MethodGet, path, nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// Send appends a message to the chat.
func (client *Client) Send(ctx context.Context, chatID uint, content string) (*Message, error) {
	var resp struct {
		Message Message `json:"message"`
	}
	body := map[string]any{"chatId": chatID, "content": content}
	if err := client.do(ctx, http.MethodPost, "/api/chat/messages", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// MarkRead marks the chat's inbound messages as read and returns how many
// rows flipped.
func (client *Client) MarkRead(ctx context.Context, chatID uint) (int64, error) {
	var resp struct {
		Success         bool  `json:"success"`
		MessagesUpdated int64 `json:"messagesUpdated"`
	}
	body := map[string]any{"chatId": chatID}
	if err := client.do(ctx, http.MethodPost, "/api/chat/read", body, &resp); err != nil {
		return 0, err
	}
	return resp.MessagesUpdated, nil
}

// Inbox fetches the counselor's open chats.
func (client *Client) Inbox(ctx context.Context) ([]ChatPreview, error) {
	var resp struct {
		Chats []ChatPreview `json:"chats"`
	}
	if err := client.do(ctx, http.MethodGet, "/api/counselor/chats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}
