// Package chat implements the access control and message exchange service
// behind the chat endpoints. Every operation takes the caller's session as
// an explicit parameter; a nil session means the caller is anonymous.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/peertalk/peertalk/db"
	"gorm.io/gorm"
)

// Service errors. The HTTP layer maps these to status codes; anything else
// coming out of an operation is an internal store failure.
var (
	ErrInvalidArgument = errors.New("missing or empty required field")
	ErrNotFound        = errors.New("chat not found")
	ErrForbidden       = errors.New("caller is not a participant of this chat")
	ErrUnauthorized    = errors.New("counselor session required")
)

// Session identifies an authenticated caller. Operations accept nil for
// anonymous callers.
type Session struct {
	UserID uint
	Role   db.Role
}

// IsCounselor reports whether the session belongs to a counselor. Safe on
// a nil session.
func (s *Session) IsCounselor() bool {
	return s != nil && s.Role == db.RoleCounselor
}

type Service struct {
	queries *db.Queries
	logger  *slog.Logger
}

func NewService(queries *db.Queries, logger *slog.Logger) *Service {
	return &Service{
		queries: queries,
		logger:  logger,
	}
}

// SenderProfile is the public slice of a registered sender's account
// exposed in chat summaries. Password and token version never leave the
// service.
type SenderProfile struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary describes a chat to its participants.
type Summary struct {
	ID          uint           `json:"id"`
	IsAnonymous bool           `json:"is_anonymous"`
	Sender      *SenderProfile `json:"sender"`
}

// Thread is the result of listing a chat: its messages in creation order
// plus the chat summary.
type Thread struct {
	Messages []db.Message `json:"messages"`
	Chat     Summary      `json:"chat"`
}

// Preview is one entry of the counselor inbox. It carries the full
// ascending message list so the dashboard can compute its search, unread
// and recency filters without further round-trips.
type Preview struct {
	ID          uint           `json:"id"`
	IsAnonymous bool           `json:"is_anonymous"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Sender      *SenderProfile `json:"sender"`
	Messages    []db.Message   `json:"messages"`
}

func profileOf(user *db.User) *SenderProfile {
	if user == nil {
		return nil
	}
	return &SenderProfile{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// authorize decides whether the caller may read or write the given chat.
// A registered caller must be the chat's sender, its receiver, or a
// counselor. An anonymous caller may only touch anonymous chats.
func authorize(session *Session, chat *db.Chat) error {
	if session != nil {
		isParticipant := (chat.SenderID != nil && *chat.SenderID == session.UserID) ||
			(chat.ReceiverID != nil && *chat.ReceiverID == session.UserID) ||
			session.Role == db.RoleCounselor
		if !isParticipant {
			return ErrForbidden
		}
		return nil
	}

	if !chat.IsAnonymous {
		return ErrForbidden
	}
	return nil
}

// StartOrResume returns the caller's open chat, creating one when none
// exists. Registered callers reuse their open chat; anonymous callers get
// a fresh chat every time (the chat id lives client-side for them). The
// receiver is the first counselor on record; when no counselor exists the
// chat is created receiver-less rather than failing.
//
// Find and create are two separate store calls, so two concurrent calls
// from the same registered user can each create an open chat.
func (service *Service) StartOrResume(ctx context.Context, session *Session) (*db.Chat, error) {
	var chat db.Chat

	if session != nil {
		result := service.queries.DB.WithContext(ctx).
			Where("sender_id = ? AND status = ?", session.UserID, db.ChatOpen).
			First(&chat)
		if result.Error == nil {
			return &chat, nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}
	}

	var senderID *uint
	if session != nil {
		id := session.UserID
		senderID = &id
	}

	var receiverID *uint
	var counselor db.User
	result := service.queries.DB.WithContext(ctx).
		Where("role = ?", db.RoleCounselor).
		First(&counselor)
	if result.Error == nil {
		id := counselor.ID
		receiverID = &id
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		service.logger.Warn("no counselor on record, creating receiver-less chat")
	} else {
		return nil, result.Error
	}

	chat = db.Chat{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		IsAnonymous: session == nil,
		Status:      db.ChatOpen,
	}
	result = service.queries.DB.WithContext(ctx).Create(&chat)
	if result.Error != nil {
		return nil, result.Error
	}

	return &chat, nil
}

// ListMessages returns every message of the chat in creation order, plus
// the chat summary.
func (service *Service) ListMessages(ctx context.Context, session *Session, chatID uint) (*Thread, error) {
	if chatID == 0 {
		return nil, ErrInvalidArgument
	}

	var chat db.Chat
	result := service.queries.DB.WithContext(ctx).
		Preload("Sender").
		First(&chat, chatID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}

	if err := authorize(session, &chat); err != nil {
		return nil, err
	}

	var messages []db.Message
	// id breaks ties between messages created within the same timestamp tick
	result = service.queries.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}

	return &Thread{
		Messages: messages,
		Chat: Summary{
			ID:          chat.ID,
			IsAnonymous: chat.IsAnonymous,
			Sender:      profileOf(chat.Sender),
		},
	}, nil
}

// AppendMessage persists a message in the chat and bumps the chat's
// updated_at. Counselor messages are born read; everything else starts
// unread until a counselor marks the chat.
func (service *Service) AppendMessage(ctx context.Context, session *Session, chatID uint, content string) (*db.Message, error) {
	if chatID == 0 || content == "" {
		return nil, ErrInvalidArgument
	}

	var chat db.Chat
	result := service.queries.DB.WithContext(ctx).First(&chat, chatID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}

	if err := authorize(session, &chat); err != nil {
		return nil, err
	}

	var senderID *uint
	if session != nil {
		id := session.UserID
		senderID = &id
	}

	message := db.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		IsRead:   session.IsCounselor(),
	}
	result = service.queries.DB.WithContext(ctx).Create(&message)
	if result.Error != nil {
		return nil, result.Error
	}

	result = service.queries.DB.WithContext(ctx).
		Model(&chat).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return nil, result.Error
	}

	return &message, nil
}

// MarkRead flips is_read on every unread message of the chat attributed to
// the non-counselor party (NULL sender id). Counselor-authored messages
// are read at creation, so they never qualify. The update is idempotent:
// with no qualifying rows it reports zero and succeeds.
func (service *Service) MarkRead(ctx context.Context, session *Session, chatID uint) (int64, error) {
	if !session.IsCounselor() {
		return 0, ErrUnauthorized
	}
	if chatID == 0 {
		return 0, ErrInvalidArgument
	}

	result := service.queries.DB.WithContext(ctx).
		Model(&db.Message{}).
		Where("chat_id = ? AND is_read = ? AND sender_id IS NULL", chatID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// ListCounselorChats returns the caller's open chats, most recently
// updated first, each with its sender profile and ascending messages.
func (service *Service) ListCounselorChats(ctx context.Context, session *Session) ([]Preview, error) {
	if !session.IsCounselor() {
		return nil, ErrUnauthorized
	}

	var chats []db.Chat
	result := service.queries.DB.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", session.UserID, db.ChatOpen).
		Preload("Sender").
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		Order("updated_at DESC").
		Find(&chats)
	if result.Error != nil {
		return nil, result.Error
	}

	previews := make([]Preview, 0, len(chats))
	for _, chat := range chats {
		previews = append(previews, Preview{
			ID:          chat.ID,
			IsAnonymous: chat.IsAnonymous,
			CreatedAt:   chat.CreatedAt,
			UpdatedAt:   chat.UpdatedAt,
			Sender:      profileOf(chat.Sender),
			Messages:    chat.Messages,
		})
	}

	return previews, nil
}

// ReceiverOf reports the counselor assigned to the chat, when there is
// one. Used for best-effort notification fan-out, so lookups that fail
// just report false.
func (service *Service) ReceiverOf(ctx context.Context, chatID uint) (uint, bool) {
	var chat db.Chat
	result := service.queries.DB.WithContext(ctx).First(&chat, chatID)
	if result.Error != nil || chat.ReceiverID == nil {
		return 0, false
	}
	return *chat.ReceiverID, true
}

// Close transitions the chat to CLOSED. Nothing in the application calls
// this on its own: chats stay open until a counselor closes them.
func (service *Service) Close(ctx context.Context, session *Session, chatID uint) error {
	if !session.IsCounselor() {
		return ErrUnauthorized
	}
	if chatID == 0 {
		return ErrInvalidArgument
	}

	var chat db.Chat
	result := service.queries.DB.WithContext(ctx).First(&chat, chatID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return result.Error
	}

	result = service.queries.DB.WithContext(ctx).
		Model(&chat).
		Update("status", db.ChatClosed)
	return result.Error
}
