package service

import (
	"PassKeeper/internal/keystore"
	"PassKeeper/internal/model"
	"PassKeeper/internal/repo"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// UserService — регистрация, вход и удаление учётных записей.
type UserService struct {
	users     repo.UserRepository
	questions repo.QuestionRepository
	vault     *VaultService
	keys      keystore.Store
	log       *zap.SugaredLogger
}

func NewUserService(users repo.UserRepository, questions repo.QuestionRepository, vault *VaultService, keys keystore.Store, log *zap.SugaredLogger) *UserService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &UserService{users: users, questions: questions, vault: vault, keys: keys, log: log}
}

// ValidLogin проверяет формат логина.
func ValidLogin(login string) bool {
	return loginPattern.MatchString(login)
}

// Register создаёт пользователя: хеш пароля входа, ключ хранилища, запечатанный ответ.
// Пользователь и ключ сохраняются в одной транзакции: ошибка записи ключа откатывает пользователя.
func (s *UserService) Register(ctx context.Context, login, password string, questionID int64, answer string) (*model.User, error) {
	if !ValidLogin(login) {
		return nil, fmt.Errorf("%w: invalid username format", ErrInvalidInput)
	}
	if err := validateSecret(password); err != nil {
		return nil, err
	}
	// ответ запечатывается без изменений
	if err := checkField("answer", answer, maxAnswerLen); err != nil {
		return nil, err
	}

	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	existing, err := s.users.GetUserByLogin(ctx, login)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, err := hashSecret(password)
	if err != nil {
		return nil, err
	}
	prov, err := s.vault.ProvisionUser(ctx, login, password, answer)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Login:          login,
		Password:       hash,
		EncryptionSalt: prov.Salt,
		QuestionID:     &questionID,
		Answers:        prov.Answers,
	}
	created, err := s.users.CreateUserTx(ctx, u, func(u *model.User) error {
		return s.keys.Save(ctx, u.ID, prov.Key)
	})
	if err != nil {
		if s.loginTaken(ctx, login, err) {
			return nil, ErrLoginTaken
		}
		s.log.Errorw("register failed", "login", login, "error", err)
		return nil, err
	}
	s.log.Infow("user registered", "user_id", created.ID)
	return created, nil
}

// loginTaken сообщает, что вставка не прошла из-за параллельной регистрации того же логина.
// Драйвер SQLite не переводит нарушение уникальности в gorm.ErrDuplicatedKey,
// поэтому логин проверяется повторно.
func (s *UserService) loginTaken(ctx context.Context, login string, err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	u, lookupErr := s.users.GetUserByLogin(ctx, login)
	return lookupErr == nil && u != nil
}

// Login проверяет логин и пароль.
func (s *UserService) Login(ctx context.Context, login, password string) (*model.User, error) {
	if !ValidLogin(login) {
		return nil, fmt.Errorf("%w: invalid username format", ErrInvalidInput)
	}
	u, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			checkSecret(dummyHash(), password)
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if u == nil || !checkSecret(u.Password, password) {
		return nil, ErrUnauthorized
	}
	return u, nil
}

// UserSummary — публичные сведения о пользователе для поиска.
type UserSummary struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
}

// Параметры поиска пользователей.
const (
	minSearchLen       = 2
	maxSearchLen       = 50
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// SearchUsers ищет других пользователей по части логина.
func (s *UserService) SearchUsers(ctx context.Context, userID int64, query string, limit int) ([]UserSummary, error) {
	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < minSearchLen || n > maxSearchLen {
		return nil, fmt.Errorf("%w: query must be %d to %d characters", ErrInvalidInput, minSearchLen, maxSearchLen)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	users, err := s.users.SearchByLogin(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{ID: u.ID, Username: u.Login})
	}
	return out, nil
}

// Questions возвращает справочник контрольных вопросов.
func (s *UserService) Questions(ctx context.Context) ([]model.SecurityQuestion, error) {
	return s.questions.List(ctx)
}

// DeleteAccount удаляет пользователя, его записи, доступы и ключ хранилища.
func (s *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.keys.Delete(ctx, userID); err != nil {
		s.log.Warnw("vault key delete failed", "user_id", userID, "error", err)
	}
	s.log.Infow("account deleted", "user_id", userID)
	return nil
}
