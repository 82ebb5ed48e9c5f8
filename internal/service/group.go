package service

import (
	"PassKeeper/internal/repo"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MemberView — участник группы.
type MemberView struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"is_admin"`
	JoinedAt time.Time `json:"joined_at"`
}

// CreateGroup создаёт группу, создатель становится администратором.
// Если вызывающий уже администратор группы с этим именем — created=false без ошибки,
// если имя занято чужой группой — ErrConflict.
func (s *ShareService) CreateGroup(ctx context.Context, userID int64, name string) (bool, error) {
	name, err := cleanField("group name", name, maxGroupNameLen)
	if err != nil {
		return false, err
	}
	err = s.groups.Create(ctx, name, userID)
	if errors.Is(err, repo.ErrGroupExists) {
		if s.requireAdmin(ctx, name, userID) == nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: group name already in use", ErrConflict)
	}
	if err != nil {
		return false, err
	}
	s.log.Infow("group created", "group", name, "user_id", userID)
	return true, nil
}

// ListMyGroups — группы пользователя с числом участников и признаком администратора.
func (s *ShareService) ListMyGroups(ctx context.Context, userID int64) ([]repo.GroupSummary, error) {
	list, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []repo.GroupSummary{}
	}
	return list, nil
}

// Members — состав группы. Только для администратора.
func (s *ShareService) Members(ctx context.Context, adminID int64, group string) ([]MemberView, error) {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, group, adminID); err != nil {
		return nil, err
	}
	members, err := s.groups.Members(ctx, group)
	if err != nil {
		return nil, err
	}
	out := make([]MemberView, 0, len(members))
	for _, m := range members {
		v := MemberView{UserID: m.UserID, IsAdmin: m.IsAdmin, JoinedAt: m.CreatedAt}
		if m.User != nil {
			v.Username = m.User.Login
		}
		out = append(out, v)
	}
	return out, nil
}

// RemoveMember исключает участника. Исключать может администратор, выйти сам — любой участник.
// Единственный администратор выйти не может. Доступы, выданные участником и ему в группе, отзываются.
func (s *ShareService) RemoveMember(ctx context.Context, callerID int64, group string, userID int64) error {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return err
	}
	if userID != callerID {
		if err := s.requireAdmin(ctx, group, callerID); err != nil {
			return err
		}
	} else {
		self, err := s.groups.Member(ctx, group, callerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if self.IsAdmin {
			admins, err := s.groups.CountAdmins(ctx, group)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return fmt.Errorf("%w: cannot remove the only admin", ErrInvalidInput)
			}
		}
	}

	removed, err := s.groups.RemoveMember(ctx, group, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	s.log.Infow("member removed", "group", group, "user_id", userID, "by", callerID)
	return nil
}

// RenameGroup переименовывает группу и возвращает итоговое имя. Только для администратора.
func (s *ShareService) RenameGroup(ctx context.Context, adminID int64, oldName, newName string) (string, error) {
	oldName, err := cleanField("group name", oldName, maxGroupNameLen)
	if err != nil {
		return "", err
	}
	newName, err = cleanField("new name", newName, maxGroupNameLen)
	if err != nil {
		return "", err
	}
	if err := s.requireAdmin(ctx, oldName, adminID); err != nil {
		return "", err
	}
	if oldName == newName {
		return newName, nil
	}

	err = s.groups.Rename(ctx, oldName, newName)
	switch {
	case errors.Is(err, repo.ErrGroupExists):
		return "", fmt.Errorf("%w: group name already in use", ErrConflict)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", ErrNotFound
	case err != nil:
		return "", err
	}
	s.log.Infow("group renamed", "group", oldName, "new_name", newName, "by", adminID)
	return newName, nil
}

// DeleteGroup удаляет группу со всем составом и доступами. Только для администратора.
func (s *ShareService) DeleteGroup(ctx context.Context, adminID int64, group string) error {
	group, err := cleanField("group name", group, maxGroupNameLen)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, group, adminID); err != nil {
		return err
	}
	if err := s.groups.Delete(ctx, group); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Infow("group deleted", "group", group, "by", adminID)
	return nil
}
