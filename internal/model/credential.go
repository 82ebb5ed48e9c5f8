package model

import "time"

// HistoryDepth — сколько предыдущих паролей хранится в истории ротации.
const HistoryDepth = 5

// HistoryEntry — один вытесненный шифртекст пароля.
type HistoryEntry struct {
	Cipher    string    `json:"cipher"`
	Mode      string    `json:"mode"`
	RotatedAt time.Time `json:"rotated_at"`
}

// Credential — серверная модель учётных данных пользователя.
type Credential struct {
	ID     string `gorm:"primaryKey;type:uuid"`
	UserID int64  `gorm:"not null;index"` // ссылка на users.id

	// Связи
	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	AppName string  `gorm:"size:255;not null;index"`
	AppType *string `gorm:"size:255;index"`

	UsernameCipher string `gorm:"type:text;not null"`
	PasswordCipher string `gorm:"type:text;not null"`
	// Режим, которым запечатаны текущие поля: "gcm" или "cbc" (старые записи).
	CipherMode string `gorm:"size:8;not null;default:gcm"`

	Strength int `gorm:"not null;default:0"`

	// Самая свежая запись первой, не больше HistoryDepth.
	History []HistoryEntry `gorm:"serializer:json;type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
