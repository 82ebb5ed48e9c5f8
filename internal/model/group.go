package model

import "time"

// Group — именованная группа пользователей. Имя глобально уникально.
type Group struct {
	Name      string    `gorm:"primaryKey;size:500"`
	CreatedBy int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// GroupMember — участие пользователя в группе. Администраторы управляют составом и доступами.
type GroupMember struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	GroupName string `gorm:"size:500;not null;uniqueIndex:idx_member_unique"`
	UserID    int64  `gorm:"not null;index;uniqueIndex:idx_member_unique"`
	IsAdmin   bool   `gorm:"not null;default:false"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
