package model

import "time"

// ShareGrant — разрешение участнику группы читать чужую запись.
// Ключевого материала не содержит: чтение идёт ключом владельца.
type ShareGrant struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	GroupName string `gorm:"size:500;not null;uniqueIndex:idx_share_unique"`
	GranteeID int64  `gorm:"not null;index;uniqueIndex:idx_share_unique"`
	OwnerID   int64  `gorm:"not null;index"`

	CredentialID string      `gorm:"type:uuid;not null;uniqueIndex:idx_share_unique"`
	Credential   *Credential `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Grantee      *User       `gorm:"foreignKey:GranteeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Owner        *User       `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
