package repo

import (
	"PassKeeper/internal/model"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// UserRepository — доступ к учётным записям.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	// CreateUserTx создаёт пользователя и вызывает afterCreate в той же транзакции.
	// Ошибка afterCreate откатывает создание записи.
	CreateUserTx(ctx context.Context, user *model.User, afterCreate func(u *model.User) error) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// SearchByLogin ищет пользователей, чей логин содержит query без учёта регистра, кроме excludeID.
	SearchByLogin(ctx context.Context, query string, excludeID int64, limit int) ([]model.User, error)
	// DeleteUser удаляет пользователя вместе с его записями, доступами, участием в группах и сообщениями.
	DeleteUser(ctx context.Context, id int64) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository создаёт реализацию репозитория пользователей.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) CreateUserTx(ctx context.Context, user *model.User, afterCreate func(u *model.User) error) (*model.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if afterCreate != nil {
			return afterCreate(user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("login = ?", login).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tx := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password", hash)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *userRepo) SearchByLogin(ctx context.Context, query string, excludeID int64, limit int) ([]model.User, error) {
	var out []model.User
	err := r.db.WithContext(ctx).
		Select("id", "login").
		Where(`LOWER(login) LIKE ? ESCAPE '\' AND id <> ?`, "%"+likeEscaper.Replace(strings.ToLower(query))+"%", excludeID).
		Order("login").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) DeleteUser(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// каскад делаем явно: SQLite без PRAGMA foreign_keys внешние ключи не применяет
		sub := tx.Model(&model.Credential{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("credential_id IN (?) OR grantee_id = ?", sub, id).Delete(&model.ShareGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.Credential{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipient_id = ? OR sender_id = ?", id, id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := leaveGroups(tx, id); err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// leaveGroups убирает пользователя из всех групп. Группе, оставшейся без администратора,
// назначается самый давний участник; опустевшие группы удаляются.
func leaveGroups(tx *gorm.DB, userID int64) error {
	var adminOf []string
	if err := tx.Model(&model.GroupMember{}).
		Where("user_id = ? AND is_admin = ?", userID, true).
		Pluck("group_name", &adminOf).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&model.GroupMember{}).Error; err != nil {
		return err
	}

	for _, g := range adminOf {
		var admins int64
		if err := tx.Model(&model.GroupMember{}).Where("group_name = ? AND is_admin = ?", g, true).Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			continue
		}
		var next model.GroupMember
		err := tx.Where("group_name = ?", g).Order("id").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&next).Update("is_admin", true).Error; err != nil {
			return err
		}
	}

	members := tx.Model(&model.GroupMember{}).Select("group_name")
	return tx.Where("name NOT IN (?)", members).Delete(&model.Group{}).Error
}
