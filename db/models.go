package db

import "gorm.io/gorm"

type Role string

type ChatStatus string

type NotificationStatus string

const (
	RoleUser      Role = "USER"
	RoleCounselor Role = "COUNSELOR"

	ChatOpen   ChatStatus = "OPEN"
	ChatClosed ChatStatus = "CLOSED"

	Unread NotificationStatus = "unread"
	Read   NotificationStatus = "read"
)

type User struct {
	gorm.Model
	Name         string `json:"name" gorm:"not null"`
	Email        string `json:"email" gorm:"unique;not null"`
	Password     string `json:"-" gorm:"not null"`
	Role         Role   `json:"role" gorm:"not null;default:USER"`
	TokenVersion uint   `json:"token_version"`
}

// Chat is a thread between one sender party and one counselor. A nil
// SenderID means the sender party is anonymous; a nil ReceiverID means no
// counselor record existed when the chat was created.
type Chat struct {
	gorm.Model
	SenderID    *uint      `json:"sender_id"`
	Sender      *User      `json:"sender" gorm:"foreignKey:SenderID"`
	ReceiverID  *uint      `json:"receiver_id"`
	Receiver    *User      `json:"receiver" gorm:"foreignKey:ReceiverID"`
	IsAnonymous bool       `json:"is_anonymous"`
	Status      ChatStatus `json:"status" gorm:"not null;default:OPEN"`
	Messages    []Message  `json:"messages" gorm:"foreignKey:ChatID"`
}

// Message rows are append-only. A nil SenderID attributes the message to
// the non-counselor party of its chat.
type Message struct {
	gorm.Model
	ChatID   uint   `json:"chat_id" gorm:"not null;index"`
	SenderID *uint  `json:"sender_id"`
	Sender   *User  `json:"sender" gorm:"foreignKey:SenderID"`
	Content  string `json:"content" gorm:"not null"`
	IsRead   bool   `json:"is_read"`
}

type Notification struct {
	gorm.Model
	ChatID  uint               `json:"chat_id"`
	DestID  uint               `json:"dest_id"`
	Content string             `json:"content"`
	Status  NotificationStatus `json:"status"`
}
