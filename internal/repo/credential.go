package repo

import (
	"PassKeeper/internal/model"
	"context"

	"gorm.io/gorm"
)

// CredentialFilter — условия выборки списка записей.
type CredentialFilter struct {
	AppName string
	AppType string
	Offset  int
	Limit   int
}

// AppCount — имя приложения (или тип) и число записей с ним.
type AppCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// StrengthStats — сводка по оценкам паролей владельца.
type StrengthStats struct {
	Total int64
	Weak  int64
	Avg   float64
}

// CredentialRepository определяет контракт доступа к записям хранилища.
// Все методы, кроме GetAnyByID и ListByIDs, ограничены владельцем.
type CredentialRepository interface {
	Create(ctx context.Context, c *model.Credential) error
	GetByID(ctx context.Context, userID int64, id string) (*model.Credential, error)
	// GetAnyByID ищет запись без учёта владельца; используется для общего доступа.
	GetAnyByID(ctx context.Context, id string) (*model.Credential, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Credential, error)
	List(ctx context.Context, userID int64, f CredentialFilter) ([]model.Credential, int64, error)
	ListAll(ctx context.Context, userID int64) ([]model.Credential, error)
	Update(ctx context.Context, c *model.Credential) error
	Delete(ctx context.Context, userID int64, id string) error
	Applications(ctx context.Context, userID int64) ([]AppCount, error)
	ApplicationTypes(ctx context.Context, userID int64) ([]AppCount, error)
	// Stats считает записи, слабые (оценка не выше weakMax) и среднюю оценку.
	Stats(ctx context.Context, userID int64, weakMax int) (StrengthStats, error)
}

type credentialRepo struct {
	db *gorm.DB
}

// NewCredentialRepository создаёт реализацию репозитория записей.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepo{db: db}
}

func (r *credentialRepo) Create(ctx context.Context, c *model.Credential) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *credentialRepo) GetByID(ctx context.Context, userID int64, id string) (*model.Credential, error) {
	var c model.Credential
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *credentialRepo) GetAnyByID(ctx context.Context, id string) (*model.Credential, error) {
	var c model.Credential
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *credentialRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Credential, error) {
	var out []model.Credential
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("app_name, id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *credentialRepo) scoped(ctx context.Context, userID int64, f CredentialFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Credential{}).Where("user_id = ?", userID)
	if f.AppName != "" {
		q = q.Where("app_name = ?", f.AppName)
	}
	if f.AppType != "" {
		q = q.Where("app_type = ?", f.AppType)
	}
	return q
}

// List возвращает страницу записей и общее число записей, подходящих под фильтр.
func (r *credentialRepo) List(ctx context.Context, userID int64, f CredentialFilter) ([]model.Credential, int64, error) {
	var total int64
	if err := r.scoped(ctx, userID, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.scoped(ctx, userID, f).Order("created_at DESC, id")
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []model.Credential
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *credentialRepo) ListAll(ctx context.Context, userID int64) ([]model.Credential, error) {
	var out []model.Credential
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("app_name, id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update перезаписывает изменяемые поля записи владельца.
// Если запись не найдена у этого владельца — gorm.ErrRecordNotFound.
func (r *credentialRepo) Update(ctx context.Context, c *model.Credential) error {
	tx := r.db.WithContext(ctx).Model(c).
		Where("user_id = ?", c.UserID).
		Select("AppName", "AppType", "UsernameCipher", "PasswordCipher", "CipherMode", "Strength", "History", "UpdatedAt").
		Updates(c)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *credentialRepo) Delete(ctx context.Context, userID int64, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Credential{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("credential_id = ?", id).Delete(&model.ShareGrant{}).Error
	})
}

func (r *credentialRepo) Applications(ctx context.Context, userID int64) ([]AppCount, error) {
	var out []AppCount
	err := r.db.WithContext(ctx).Model(&model.Credential{}).
		Select("app_name AS name, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("app_name").
		Order("app_name").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *credentialRepo) ApplicationTypes(ctx context.Context, userID int64) ([]AppCount, error) {
	var out []AppCount
	err := r.db.WithContext(ctx).Model(&model.Credential{}).
		Select("app_type AS name, COUNT(*) AS count").
		Where("user_id = ? AND app_type IS NOT NULL AND app_type <> ''", userID).
		Group("app_type").
		Order("app_type").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *credentialRepo) Stats(ctx context.Context, userID int64, weakMax int) (StrengthStats, error) {
	var st StrengthStats
	err := r.db.WithContext(ctx).Model(&model.Credential{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN strength <= ? THEN 1 ELSE 0 END), 0) AS weak, "+
			"COALESCE(AVG(strength), 0) AS avg", weakMax).
		Where("user_id = ?", userID).
		Scan(&st).Error
	if err != nil {
		return StrengthStats{}, err
	}
	return st, nil
}
