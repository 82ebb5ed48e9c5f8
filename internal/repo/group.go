package repo

import (
	"PassKeeper/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrGroupExists — группа с таким именем уже есть.
var ErrGroupExists = errors.New("group already exists")

// GroupSummary — группа с точки зрения одного участника.
type GroupSummary struct {
	GroupName   string `json:"group_name"`
	MemberCount int64  `json:"member_count"`
	IsAdmin     bool   `json:"is_admin"`
}

// GroupRepository — группы и их состав.
type GroupRepository interface {
	// Create создаёт группу и делает adminID её администратором.
	// Если имя занято — ErrGroupExists.
	Create(ctx context.Context, name string, adminID int64) error
	// Member возвращает участие пользователя в группе или gorm.ErrRecordNotFound.
	Member(ctx context.Context, group string, userID int64) (*model.GroupMember, error)
	// AddMember добавляет участника, если его ещё нет. created=true, если строка создана.
	AddMember(ctx context.Context, group string, userID int64, admin bool) (created bool, err error)
	Members(ctx context.Context, group string) ([]model.GroupMember, error)
	ListForUser(ctx context.Context, userID int64) ([]GroupSummary, error)
	CountAdmins(ctx context.Context, group string) (int64, error)
	// RemoveMember исключает участника и отзывает доступы, выданные им и ему в этой группе.
	RemoveMember(ctx context.Context, group string, userID int64) (bool, error)
	// Rename переносит состав, доступы и ожидающие приглашения на новое имя.
	Rename(ctx context.Context, oldName, newName string) error
	// Delete удаляет группу, её состав, доступы и ожидающие приглашения.
	Delete(ctx context.Context, name string) error
}

type groupRepo struct {
	db *gorm.DB
}

// NewGroupRepository создаёт реализацию репозитория групп.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepo{db: db}
}

func insertGroup(tx *gorm.DB, g *model.Group) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(g)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGroupExists
	}
	return nil
}

func (r *groupRepo) Create(ctx context.Context, name string, adminID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertGroup(tx, &model.Group{Name: name, CreatedBy: adminID}); err != nil {
			return err
		}
		return tx.Create(&model.GroupMember{GroupName: name, UserID: adminID, IsAdmin: true}).Error
	})
}

func (r *groupRepo) Member(ctx context.Context, group string, userID int64) (*model.GroupMember, error) {
	var m model.GroupMember
	if err := r.db.WithContext(ctx).Where("group_name = ? AND user_id = ?", group, userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *groupRepo) AddMember(ctx context.Context, group string, userID int64, admin bool) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_name"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&model.GroupMember{GroupName: group, UserID: userID, IsAdmin: admin})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *groupRepo) Members(ctx context.Context, group string) ([]model.GroupMember, error) {
	var out []model.GroupMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_name = ?", group).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *groupRepo) ListForUser(ctx context.Context, userID int64) ([]GroupSummary, error) {
	var out []GroupSummary
	err := r.db.WithContext(ctx).
		Table("group_members AS m").
		Select("m.group_name AS group_name, m.is_admin AS is_admin, "+
			"(SELECT COUNT(*) FROM group_members c WHERE c.group_name = m.group_name) AS member_count").
		Where("m.user_id = ?", userID).
		Order("m.group_name").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *groupRepo) CountAdmins(ctx context.Context, group string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_name = ? AND is_admin = ?", group, true).
		Count(&n).Error
	return n, err
}

func (r *groupRepo) RemoveMember(ctx context.Context, group string, userID int64) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("group_name = ? AND user_id = ?", group, userID).Delete(&model.GroupMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Where("group_name = ? AND (grantee_id = ? OR owner_id = ?)", group, userID, userID).
			Delete(&model.ShareGrant{}).Error
	})
	return removed, err
}

func (r *groupRepo) Rename(ctx context.Context, oldName, newName string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old model.Group
		if err := tx.Where("name = ?", oldName).First(&old).Error; err != nil {
			return err
		}
		if err := insertGroup(tx, &model.Group{Name: newName, CreatedBy: old.CreatedBy, CreatedAt: old.CreatedAt}); err != nil {
			return err
		}
		if err := tx.Model(&model.GroupMember{}).Where("group_name = ?", oldName).
			Update("group_name", newName).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ShareGrant{}).Where("group_name = ?", oldName).
			Update("group_name", newName).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Message{}).Where("group_name = ? AND status = ?", oldName, model.MessagePending).
			Update("group_name", newName).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", oldName).Delete(&model.Group{}).Error
	})
}

func (r *groupRepo) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_name = ?", name).Delete(&model.ShareGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_name = ? AND status = ?", name, model.MessagePending).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_name = ?", name).Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		res := tx.Where("name = ?", name).Delete(&model.Group{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
