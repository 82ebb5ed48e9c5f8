package repo

import (
	"PassKeeper/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShareRepository — разрешения на чтение чужих записей.
type ShareRepository interface {
	// Grant создаёт разрешение, если такого ещё нет.
	// Возвращает created=true, если запись была создана в этой операции.
	Grant(ctx context.Context, g *model.ShareGrant) (created bool, err error)
	// Revoke удаляет разрешение, выданное владельцем ownerID.
	Revoke(ctx context.Context, ownerID int64, group string, granteeID int64, credentialID string) (bool, error)
	Exists(ctx context.Context, granteeID int64, credentialID string) (bool, error)
	ListForGrantee(ctx context.Context, granteeID int64) ([]model.ShareGrant, error)
	// ListForGroup возвращает все доступы группы вместе с владельцами и получателями.
	ListForGroup(ctx context.Context, group string) ([]model.ShareGrant, error)
}

type shareRepo struct {
	db *gorm.DB
}

// NewShareRepository создаёт реализацию репозитория разрешений.
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepo{db: db}
}

func (r *shareRepo) Grant(ctx context.Context, g *model.ShareGrant) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_name"}, {Name: "grantee_id"}, {Name: "credential_id"}},
		DoNothing: true,
	}).Create(g)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *shareRepo) Revoke(ctx context.Context, ownerID int64, group string, granteeID int64, credentialID string) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("owner_id = ? AND group_name = ? AND grantee_id = ? AND credential_id = ?", ownerID, group, granteeID, credentialID).
		Delete(&model.ShareGrant{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *shareRepo) Exists(ctx context.Context, granteeID int64, credentialID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ShareGrant{}).
		Where("grantee_id = ? AND credential_id = ?", granteeID, credentialID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *shareRepo) ListForGrantee(ctx context.Context, granteeID int64) ([]model.ShareGrant, error) {
	var out []model.ShareGrant
	if err := r.db.WithContext(ctx).Where("grantee_id = ?", granteeID).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *shareRepo) ListForGroup(ctx context.Context, group string) ([]model.ShareGrant, error) {
	var out []model.ShareGrant
	err := r.db.WithContext(ctx).
		Preload("Grantee").
		Preload("Owner").
		Where("group_name = ?", group).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
