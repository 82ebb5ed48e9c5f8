package repo

import (
	"PassKeeper/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMessageResolved — сообщение уже принято или отклонено.
var ErrMessageResolved = errors.New("message already processed")

// MessageRepository — входящие сообщения пользователей.
type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	// ListPending возвращает ожидающие сообщения получателя, новые первыми.
	ListPending(ctx context.Context, recipientID int64) ([]model.Message, error)
	CountPending(ctx context.Context, recipientID int64) (int64, error)
	// HasPending сообщает, ждёт ли уже получателя такое же сообщение от отправителя.
	HasPending(ctx context.Context, recipientID, senderID int64, kind string, group *string) (bool, error)
	// Resolve переводит ожидающее сообщение в status. Принятое приглашение добавляет
	// получателя в группу в той же транзакции.
	// Нет сообщения у получателя — gorm.ErrRecordNotFound, уже обработано — ErrMessageResolved.
	Resolve(ctx context.Context, recipientID int64, id, status string) (*model.Message, error)
}

type messageRepo struct {
	db *gorm.DB
}

// NewMessageRepository создаёт реализацию репозитория сообщений.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) ListPending(ctx context.Context, recipientID int64) ([]model.Message, error) {
	var out []model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ? AND status = ?", recipientID, model.MessagePending).
		Order("created_at DESC, id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) CountPending(ctx context.Context, recipientID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("recipient_id = ? AND status = ?", recipientID, model.MessagePending).
		Count(&n).Error
	return n, err
}

func (r *messageRepo) HasPending(ctx context.Context, recipientID, senderID int64, kind string, group *string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND kind = ? AND status = ?", recipientID, senderID, kind, model.MessagePending)
	if group != nil {
		q = q.Where("group_name = ?", *group)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *messageRepo) Resolve(ctx context.Context, recipientID int64, id, status string) (*model.Message, error) {
	var m model.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND recipient_id = ?", id, recipientID).First(&m).Error; err != nil {
			return err
		}
		// условие на статус: из двух параллельных ответов проходит один
		res := tx.Model(&model.Message{}).
			Where("id = ? AND status = ?", id, model.MessagePending).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMessageResolved
		}
		m.Status = status

		if status != model.MessageAccepted || m.Kind != model.MessageGroupInvitation || m.GroupName == nil {
			return nil
		}
		var n int64
		if err := tx.Model(&model.Group{}).Where("name = ?", *m.GroupName).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_name"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&model.GroupMember{GroupName: *m.GroupName, UserID: recipientID}).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
