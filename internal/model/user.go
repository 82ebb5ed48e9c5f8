package model

import "time"

// User — учётная запись владельца хранилища.
type User struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Login string `gorm:"uniqueIndex;size:255;not null"`
	// bcrypt-хеш пароля входа. С ключом хранилища не связан.
	Password string `gorm:"size:255;not null"`

	// Случайная соль KDF (base64), не секретна.
	EncryptionSalt string `gorm:"size:64"`

	QuestionID *int64            `gorm:"index"`
	Question   *SecurityQuestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	// JSON-массив ответов: конверты под ключом пользователя либо старый открытый текст.
	Answers string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// SecurityQuestion — контрольный вопрос для восстановления доступа.
type SecurityQuestion struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"question_id"`
	Text string `gorm:"type:text;not null" json:"question_text"`
}
