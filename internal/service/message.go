package service

import (
	"PassKeeper/internal/model"
	"PassKeeper/internal/repo"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageService — запросы доверия и приглашения в группы между пользователями.
// Сообщения хранятся в БД и переживают перезапуск.
type MessageService struct {
	messages repo.MessageRepository
	groups   repo.GroupRepository
	users    repo.UserRepository
	log      *zap.SugaredLogger
}

func NewMessageService(messages repo.MessageRepository, groups repo.GroupRepository, users repo.UserRepository, log *zap.SugaredLogger) *MessageService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &MessageService{messages: messages, groups: groups, users: users, log: log}
}

// MessageView — входящее сообщение.
type MessageView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	From      string    `json:"from"`
	GroupName string    `json:"groupName,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"timestamp"`
}

func (s *MessageService) target(ctx context.Context, senderID int64, username string) (*model.User, error) {
	if !ValidLogin(username) {
		return nil, fmt.Errorf("%w: invalid username format", ErrInvalidInput)
	}
	u, err := s.users.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.ID == senderID {
		return nil, fmt.Errorf("%w: cannot send request to yourself", ErrInvalidInput)
	}
	return u, nil
}

func (s *MessageService) send(ctx context.Context, senderID, recipientID int64, kind string, group *string) error {
	dup, err := s.messages.HasPending(ctx, recipientID, senderID, kind, group)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: request already pending", ErrConflict)
	}
	m := &model.Message{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Kind:        kind,
		GroupName:   group,
		Status:      model.MessagePending,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return err
	}
	s.log.Infow("message sent", "kind", kind, "from", senderID, "to", recipientID)
	return nil
}

// RequestTrust отправляет пользователю username запрос доверия.
func (s *MessageService) RequestTrust(ctx context.Context, senderID int64, username string) error {
	u, err := s.target(ctx, senderID, username)
	if err != nil {
		return err
	}
	return s.send(ctx, senderID, u.ID, model.MessageTrustedUserRequest, nil)
}

// InviteToGroup приглашает пользователя username в группу. Приглашать может только администратор.
func (s *MessageService) InviteToGroup(ctx context.Context, senderID int64, username, group string) error {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return err
	}
	admin, err := s.groups.Member(ctx, group, senderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if admin == nil || !admin.IsAdmin {
		return ErrForbidden
	}

	u, err := s.target(ctx, senderID, username)
	if err != nil {
		return err
	}
	if _, err := s.groups.Member(ctx, group, u.ID); err == nil {
		return fmt.Errorf("%w: user is already a member", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.send(ctx, senderID, u.ID, model.MessageGroupInvitation, &group)
}

// Inbox — ожидающие сообщения пользователя, новые первыми.
func (s *MessageService) Inbox(ctx context.Context, userID int64) ([]MessageView, error) {
	list, err := s.messages.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MessageView, 0, len(list))
	for _, m := range list {
		v := MessageView{ID: m.ID, Type: m.Kind, Status: m.Status, CreatedAt: m.CreatedAt}
		if m.Sender != nil {
			v.From = m.Sender.Login
		}
		if m.GroupName != nil {
			v.GroupName = *m.GroupName
		}
		out = append(out, v)
	}
	return out, nil
}

// PendingCount — число ожидающих сообщений.
func (s *MessageService) PendingCount(ctx context.Context, userID int64) (int64, error) {
	return s.messages.CountPending(ctx, userID)
}

// Accept принимает сообщение. Принятое приглашение добавляет пользователя в группу.
func (s *MessageService) Accept(ctx context.Context, userID int64, id string) (*MessageView, error) {
	return s.resolve(ctx, userID, id, model.MessageAccepted)
}

// Reject отклоняет сообщение.
func (s *MessageService) Reject(ctx context.Context, userID int64, id string) (*MessageView, error) {
	return s.resolve(ctx, userID, id, model.MessageRejected)
}

func (s *MessageService) resolve(ctx context.Context, userID int64, id, status string) (*MessageView, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	m, err := s.messages.Resolve(ctx, userID, id, status)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repo.ErrMessageResolved):
		return nil, fmt.Errorf("%w: message already processed", ErrInvalidInput)
	case err != nil:
		return nil, err
	}
	s.log.Infow("message resolved", "id", id, "kind", m.Kind, "status", status, "user_id", userID)

	v := &MessageView{ID: m.ID, Type: m.Kind, Status: m.Status, CreatedAt: m.CreatedAt}
	if m.GroupName != nil {
		v.GroupName = *m.GroupName
	}
	return v, nil
}
