package service

import (
	"PassKeeper/internal/model"
	"PassKeeper/internal/repo"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShareService выдаёт и отзывает доступ к записям внутри групп.
// Ключевого материала не касается: чтение идёт через VaultService ключом владельца.
type ShareService struct {
	shares repo.ShareRepository
	groups repo.GroupRepository
	creds  repo.CredentialRepository
	users  repo.UserRepository
	log    *zap.SugaredLogger
}

func NewShareService(shares repo.ShareRepository, groups repo.GroupRepository, creds repo.CredentialRepository, users repo.UserRepository, log *zap.SugaredLogger) *ShareService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ShareService{shares: shares, groups: groups, creds: creds, users: users, log: log}
}

// GrantView — выданный в группе доступ.
type GrantView struct {
	GroupName    string    `json:"group_name"`
	CredentialID string    `json:"password_id"`
	OwnerID      int64     `json:"owner_id"`
	OwnerLogin   string    `json:"owner_username,omitempty"`
	GranteeID    int64     `json:"user_id"`
	GranteeLogin string    `json:"username,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// requireAdmin возвращает ErrForbidden, если userID не администратор группы.
// Для несуществующей группы ответ тот же.
func (s *ShareService) requireAdmin(ctx context.Context, group string, userID int64) error {
	m, err := s.groups.Member(ctx, group, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !m.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *ShareService) ownedCredential(ctx context.Context, ownerID int64, credentialID string) error {
	if _, err := s.creds.GetByID(ctx, ownerID, credentialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Grant разрешает пользователю читать запись владельца. Выдавать доступ может только
// администратор группы; получатель, ещё не состоящий в группе, добавляется рядовым участником.
// Повторная выдача ничего не меняет.
func (s *ShareService) Grant(ctx context.Context, ownerID int64, group string, granteeID int64, credentialID string) (bool, error) {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return false, err
	}
	if granteeID <= 0 || granteeID == ownerID {
		return false, fmt.Errorf("%w: invalid grantee", ErrInvalidInput)
	}
	if err := s.ownedCredential(ctx, ownerID, credentialID); err != nil {
		return false, err
	}
	if err := s.requireAdmin(ctx, group, ownerID); err != nil {
		return false, err
	}
	if _, err := s.users.GetUserByID(ctx, granteeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	return s.grant(ctx, ownerID, group, granteeID, credentialID)
}

func (s *ShareService) grant(ctx context.Context, ownerID int64, group string, granteeID int64, credentialID string) (bool, error) {
	joined, err := s.groups.AddMember(ctx, group, granteeID, false)
	if err != nil {
		return false, err
	}
	if joined {
		s.log.Infow("member added by share", "group", group, "user_id", granteeID)
	}

	created, err := s.shares.Grant(ctx, &model.ShareGrant{
		GroupName:    group,
		GranteeID:    granteeID,
		OwnerID:      ownerID,
		CredentialID: credentialID,
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Infow("credential shared", "owner_id", ownerID, "grantee_id", granteeID, "credential_id", credentialID, "group", group)
	}
	return created, nil
}

// ShareAll выдаёт доступ к записи всем участникам группы, кроме владельца.
// Возвращает число новых доступов.
func (s *ShareService) ShareAll(ctx context.Context, ownerID int64, group, credentialID string) (int, error) {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return 0, err
	}
	if err := s.ownedCredential(ctx, ownerID, credentialID); err != nil {
		return 0, err
	}
	if err := s.requireAdmin(ctx, group, ownerID); err != nil {
		return 0, err
	}
	members, err := s.groups.Members(ctx, group)
	if err != nil {
		return 0, err
	}

	granted := 0
	for _, m := range members {
		if m.UserID == ownerID {
			continue
		}
		created, err := s.grant(ctx, ownerID, group, m.UserID, credentialID)
		if err != nil {
			return granted, err
		}
		if created {
			granted++
		}
	}
	return granted, nil
}

// Revoke отзывает доступ, выданный владельцем. Только для администратора группы.
func (s *ShareService) Revoke(ctx context.Context, ownerID int64, group string, granteeID int64, credentialID string) error {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, group, ownerID); err != nil {
		return err
	}
	removed, err := s.shares.Revoke(ctx, ownerID, group, granteeID, credentialID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	s.log.Infow("credential unshared", "owner_id", ownerID, "grantee_id", granteeID, "credential_id", credentialID, "group", group)
	return nil
}

// CanRead сообщает, есть ли у участника доступ к записи хотя бы через одну группу.
func (s *ShareService) CanRead(ctx context.Context, granteeID int64, credentialID string) (bool, error) {
	return s.shares.Exists(ctx, granteeID, credentialID)
}

// ListGroup перечисляет все доступы группы. Только для администратора группы.
func (s *ShareService) ListGroup(ctx context.Context, adminID int64, group string) ([]GrantView, error) {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, group, adminID); err != nil {
		return nil, err
	}
	grants, err := s.shares.ListForGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	out := make([]GrantView, 0, len(grants))
	for _, g := range grants {
		v := GrantView{
			GroupName:    g.GroupName,
			CredentialID: g.CredentialID,
			OwnerID:      g.OwnerID,
			GranteeID:    g.GranteeID,
			CreatedAt:    g.CreatedAt,
		}
		if g.Grantee != nil {
			v.GranteeLogin = g.Grantee.Login
		}
		if g.Owner != nil {
			v.OwnerLogin = g.Owner.Login
		}
		out = append(out, v)
	}
	return out, nil
}
