package model

import "time"

// Виды сообщений.
const (
	MessageTrustedUserRequest = "trusted_user_request"
	MessageGroupInvitation    = "group_invitation"
)

// Состояния сообщения.
const (
	MessagePending  = "pending"
	MessageAccepted = "accepted"
	MessageRejected = "rejected"
)

// Message — входящее уведомление пользователя: запрос доверия или приглашение в группу.
type Message struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	RecipientID int64  `gorm:"not null;index:idx_message_inbox"`
	SenderID    int64  `gorm:"not null;index"`
	Kind        string `gorm:"size:32;not null"`
	// Только для приглашений в группу.
	GroupName *string `gorm:"size:500;index"`
	Status    string  `gorm:"size:16;not null;default:pending;index:idx_message_inbox"`

	Sender *User `gorm:"foreignKey:SenderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
