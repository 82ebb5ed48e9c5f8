package service

import (
	"PassKeeper/internal/crypto"
	"PassKeeper/internal/keystore"
	"PassKeeper/internal/model"
	"PassKeeper/internal/repo"
	"PassKeeper/internal/strength"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Параметры выборки списка.
const (
	DefaultListLimit   = 100
	MaxListLimit       = 100
	DefaultRecentLimit = 10
)

// saltLen — длина соли KDF, создаваемой при регистрации.
const saltLen = 32

// VaultService связывает KDF, хранилище ключей и шифрование полей записей.
// Все операции с записями идут ключом владельца записи.
type VaultService struct {
	users   repo.UserRepository
	creds   repo.CredentialRepository
	shares  repo.ShareRepository
	keys    keystore.Store
	deriver *crypto.Deriver
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewVaultService(
	users repo.UserRepository,
	creds repo.CredentialRepository,
	shares repo.ShareRepository,
	keys keystore.Store,
	deriver *crypto.Deriver,
	log *zap.SugaredLogger,
) *VaultService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &VaultService{
		users:   users,
		creds:   creds,
		shares:  shares,
		keys:    keys,
		deriver: deriver,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CredentialInput — данные новой записи в открытом виде.
type CredentialInput struct {
	AppName         string
	AccountUsername string
	Password        string
	AppType         *string
}

// CredentialUpdate — смена пароля записи. Пустые указатели оставляют поле как есть.
type CredentialUpdate struct {
	Password        string
	AppName         *string
	AccountUsername *string
}

// ListFilter — фильтры и страница для ListCredentials.
type ListFilter struct {
	AppName string
	AppType string
	Skip    int
	Limit   int
}

// CredentialView — расшифрованная запись для владельца или участника группы.
type CredentialView struct {
	ID              string    `json:"password_id"`
	UserID          int64     `json:"user_id"`
	AppName         string    `json:"application_name"`
	AppType         *string   `json:"application_type"`
	AccountUsername string    `json:"account_user_name"`
	Password        string    `json:"application_password"`
	Strength        int       `json:"pswd_strength"`
	CreatedAt       time.Time `json:"datetime_added"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CredentialPage — страница списка и общее число записей под фильтром.
type CredentialPage struct {
	Items []CredentialView `json:"passwords"`
	Total int64            `json:"total"`
}

// HistoryItem — расшифрованный прежний пароль.
type HistoryItem struct {
	Password  string    `json:"password"`
	RotatedAt time.Time `json:"rotated_at"`
}

// SharedCredentialView — запись, доступная участнику через группы.
type SharedCredentialView struct {
	CredentialView
	Groups []string `json:"group_names"`
}

// ApplicationCount — число записей по приложению.
type ApplicationCount struct {
	AppName string `json:"application_name"`
	Total   int64  `json:"total_accounts"`
}

// ApplicationTypeCount — число записей по типу приложения.
type ApplicationTypeCount struct {
	AppType string `json:"application_type"`
	Total   int64  `json:"total_passwords"`
}

// Provisioned — криптографическая часть новой учётной записи.
type Provisioned struct {
	Salt    string
	Answers string
	Key     []byte
}

// loadKey загружает ключ хранилища пользователя.
func (s *VaultService) loadKey(ctx context.Context, userID int64) ([]byte, error) {
	key, err := s.keys.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, keystore.ErrKeyNotFound) {
			s.log.Errorw("keystore load failed", "user_id", userID, "error", err)
		} else {
			s.log.Warnw("vault key missing", "user_id", userID)
		}
		return nil, fmt.Errorf("%w: user %d", ErrEncryptionUnavailable, userID)
	}
	return key, nil
}

// open расшифровывает поля записи.
func (s *VaultService) open(key []byte, c *model.Credential) (*CredentialView, error) {
	mode := crypto.Mode(c.CipherMode)
	password, err := crypto.OpenString(key, mode, c.PasswordCipher)
	if err != nil {
		return nil, fmt.Errorf("%w: password field", ErrAuthenticationFailure)
	}
	username, err := crypto.OpenString(key, mode, c.UsernameCipher)
	if err != nil {
		return nil, fmt.Errorf("%w: username field", ErrAuthenticationFailure)
	}
	return &CredentialView{
		ID:              c.ID,
		UserID:          c.UserID,
		AppName:         c.AppName,
		AppType:         c.AppType,
		AccountUsername: username,
		Password:        password,
		Strength:        c.Strength,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}, nil
}

// openAll расшифровывает пачку записей одним ключом. Нерасшифровываемые записи пропускаются.
func (s *VaultService) openAll(key []byte, list []model.Credential) []CredentialView {
	out := make([]CredentialView, 0, len(list))
	for i := range list {
		v, err := s.open(key, &list[i])
		if err != nil {
			s.log.Warnw("skip credential", "credential_id", list[i].ID, "error", err)
			continue
		}
		out = append(out, *v)
	}
	return out
}

// CreateCredential шифрует и сохраняет новую запись владельца.
func (s *VaultService) CreateCredential(ctx context.Context, ownerID int64, in CredentialInput) (*CredentialView, error) {
	appName, err := cleanField("application name", in.AppName, maxAppNameLen)
	if err != nil {
		return nil, err
	}
	username, err := cleanField("account username", in.AccountUsername, maxUsernameLen)
	if err != nil {
		return nil, err
	}
	password, err := cleanField("password", in.Password, maxPasswordLen)
	if err != nil {
		return nil, err
	}
	appType, err := cleanOptional("application type", in.AppType, maxAppTypeLen)
	if err != nil {
		return nil, err
	}

	// оценка считается до шифрования
	score := strength.Score(password)

	key, err := s.loadKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	passwordCipher, err := crypto.SealString(key, password)
	if err != nil {
		return nil, err
	}
	usernameCipher, err := crypto.SealString(key, username)
	if err != nil {
		return nil, err
	}

	c := &model.Credential{
		ID:             uuid.NewString(),
		UserID:         ownerID,
		AppName:        appName,
		AppType:        appType,
		UsernameCipher: usernameCipher,
		PasswordCipher: passwordCipher,
		CipherMode:     string(crypto.ModeGCM),
		Strength:       score,
	}
	if err := s.creds.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Infow("credential created", "user_id", ownerID, "credential_id", c.ID)

	return &CredentialView{
		ID:              c.ID,
		UserID:          ownerID,
		AppName:         appName,
		AppType:         appType,
		AccountUsername: username,
		Password:        password,
		Strength:        score,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}, nil
}

// ListCredentials возвращает страницу расшифрованных записей владельца, новые первыми.
func (s *VaultService) ListCredentials(ctx context.Context, ownerID int64, f ListFilter) (*CredentialPage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	key, err := s.loadKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	list, total, err := s.creds.List(ctx, ownerID, repo.CredentialFilter{
		AppName: sanitize(f.AppName, maxAppNameLen),
		AppType: sanitize(f.AppType, maxAppTypeLen),
		Offset:  max(f.Skip, 0),
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return &CredentialPage{Items: s.openAll(key, list), Total: total}, nil
}

// RecentCredentials — последние добавленные записи владельца, не больше MaxListLimit.
func (s *VaultService) RecentCredentials(ctx context.Context, ownerID int64, limit int) ([]CredentialView, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	page, err := s.ListCredentials(ctx, ownerID, ListFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CredentialsByApplication — все записи владельца для приложения, по имени учётной записи.
func (s *VaultService) CredentialsByApplication(ctx context.Context, ownerID int64, appName string) ([]CredentialView, error) {
	appName, err := cleanField("application name", appName, maxAppNameLen)
	if err != nil {
		return nil, err
	}
	key, err := s.loadKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	list, _, err := s.creds.List(ctx, ownerID, repo.CredentialFilter{AppName: appName})
	if err != nil {
		return nil, err
	}
	// имя учётной записи зашифровано, поэтому сортировка после расшифровки
	out := s.openAll(key, list)
	slices.SortStableFunc(out, func(a, b CredentialView) int {
		return strings.Compare(a.AccountUsername, b.AccountUsername)
	})
	return out, nil
}

func (s *VaultService) getOwned(ctx context.Context, ownerID int64, id string) (*model.Credential, error) {
	c, err := s.creds.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetCredential возвращает одну расшифрованную запись владельца.
func (s *VaultService) GetCredential(ctx context.Context, ownerID int64, id string) (*CredentialView, error) {
	c, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	key, err := s.loadKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	v, err := s.open(key, c)
	if err != nil {
		s.log.Warnw("credential open failed", "credential_id", id, "error", err)
		return nil, err
	}
	return v, nil
}

// pushHistory кладёт запись в начало истории и отбрасывает всё глубже HistoryDepth.
func pushHistory(history []model.HistoryEntry, e model.HistoryEntry) []model.HistoryEntry {
	out := make([]model.HistoryEntry, 0, model.HistoryDepth)
	out = append(out, e)
	out = append(out, history...)
	if len(out) > model.HistoryDepth {
		out = out[:model.HistoryDepth]
	}
	return out
}

// UpdateCredential меняет пароль записи: текущий шифртекст уходит в историю,
// новый пароль запечатывается, оценка пересчитывается.
func (s *VaultService) UpdateCredential(ctx context.Context, ownerID int64, id string, upd CredentialUpdate) (*CredentialView, error) {
	password, err := cleanField("password", upd.Password, maxPasswordLen)
	if err != nil {
		return nil, err
	}
	appName, err := cleanOptional("application name", upd.AppName, maxAppNameLen)
	if err != nil {
		return nil, err
	}
	username, err := cleanOptional("account username", upd.AccountUsername, maxUsernameLen)
	if err != nil {
		return nil, err
	}

	c, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	key, err := s.loadKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// всё шифруем до изменения записи
	passwordCipher, err := crypto.SealString(key, password)
	if err != nil {
		return nil, err
	}
	usernameCipher := c.UsernameCipher
	usernameMode := crypto.Mode(c.CipherMode)
	if username != nil {
		if usernameCipher, err = crypto.SealString(key, *username); err != nil {
			return nil, err
		}
		usernameMode = crypto.ModeGCM
	}
	currentUsername, err := crypto.OpenString(key, usernameMode, usernameCipher)
	if err != nil {
		return nil, fmt.Errorf("%w: username field", ErrAuthenticationFailure)
	}
	// режим общий на запись: логин из старой записи CBC перешифровываем в GCM
	if usernameMode != crypto.ModeGCM {
		if usernameCipher, err = crypto.SealString(key, currentUsername); err != nil {
			return nil, err
		}
	}

	now := s.now()
	c.History = pushHistory(c.History, model.HistoryEntry{
		Cipher:    c.PasswordCipher,
		Mode:      c.CipherMode,
		RotatedAt: now,
	})
	c.PasswordCipher = passwordCipher
	c.UsernameCipher = usernameCipher
	c.CipherMode = string(crypto.ModeGCM)
	c.Strength = strength.Score(password)
	if appName != nil {
		c.AppName = *appName
	}
	c.UpdatedAt = now

	if err := s.creds.Update(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.log.Infow("credential rotated", "user_id", ownerID, "credential_id", id, "history", len(c.History))

	return &CredentialView{
		ID:              c.ID,
		UserID:          c.UserID,
		AppName:         c.AppName,
		AppType:         c.AppType,
		AccountUsername: currentUsername,
		Password:        password,
		Strength:        c.Strength,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}, nil
}

// CredentialHistory возвращает прежние пароли записи, самый свежий первым.
func (s *VaultService) CredentialHistory(ctx context.Context, ownerID int64, id string) ([]HistoryItem, error) {
	c, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	key, err := s.loadKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryItem, 0, len(c.History))
	for i, h := range c.History {
		plain, err := crypto.OpenString(key, crypto.Mode(h.Mode), h.Cipher)
		if err != nil {
			s.log.Warnw("skip history entry", "credential_id", id, "slot", i+1, "error", err)
			continue
		}
		out = append(out, HistoryItem{Password: plain, RotatedAt: h.RotatedAt})
	}
	return out, nil
}

// DeleteCredential удаляет запись владельца вместе с выданными на неё доступами.
func (s *VaultService) DeleteCredential(ctx context.Context, ownerID int64, id string) error {
	if err := s.creds.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Infow("credential deleted", "user_id", ownerID, "credential_id", id)
	return nil
}

// ProvisionUser готовит криптографию новой учётной записи:
// свежую соль, ключ хранилища из пароля и запечатанный ответ на контрольный вопрос.
func (s *VaultService) ProvisionUser(ctx context.Context, username, secret, answer string) (*Provisioned, error) {
	salt, err := crypto.GenerateSalt(saltLen)
	if err != nil {
		return nil, err
	}
	key, err := s.deriver.Derive(ctx, username, secret, salt)
	if err != nil {
		if errors.Is(err, crypto.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	answers, err := sealAnswers(key, answer)
	if err != nil {
		return nil, err
	}
	return &Provisioned{Salt: crypto.EncodeSalt(salt), Answers: answers, Key: key}, nil
}

// VerifyRecoveryAnswer проверяет ответ на контрольный вопрос и возвращает id пользователя.
// Неизвестный логин, чужой вопрос и неверный ответ неразличимы: ErrUnauthorized.
func (s *VaultService) VerifyRecoveryAnswer(ctx context.Context, username string, questionID int64, answer string) (int64, error) {
	u, err := s.users.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUnauthorized
		}
		return 0, err
	}
	if u.QuestionID == nil || *u.QuestionID != questionID {
		return 0, ErrUnauthorized
	}
	ok, err := s.checkAnswer(ctx, u, answer)
	if err != nil {
		return 0, err
	}
	if !ok {
		s.log.Infow("recovery answer rejected", "user_id", u.ID)
		return 0, ErrUnauthorized
	}
	return u.ID, nil
}

func (s *VaultService) checkAnswer(ctx context.Context, u *model.User, answer string) (bool, error) {
	answers := parseAnswers(u.Answers)
	if len(answers) == 0 {
		return false, nil
	}
	var key []byte
	if hasSealed(answers) {
		k, err := s.loadKey(ctx, u.ID)
		if err != nil {
			return false, err
		}
		key = k
	}
	return matchAnswer(key, answers, answer), nil
}

// ResetProof — подтверждение права сменить пароль входа:
// текущий пароль либо вопрос и ответ.
type ResetProof struct {
	CurrentPassword string
	QuestionID      int64
	Answer          string
}

// ResetAuthSecret меняет пароль входа. Ключ хранилища не меняется.
func (s *VaultService) ResetAuthSecret(ctx context.Context, userID int64, newSecret string, proof ResetProof) error {
	if err := validateSecret(newSecret); err != nil {
		return err
	}
	// неизвестный пользователь неотличим от неверного подтверждения
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			checkSecret(dummyHash(), proof.CurrentPassword)
			return ErrUnauthorized
		}
		return err
	}

	verified := false
	switch {
	case proof.CurrentPassword != "":
		verified = checkSecret(u.Password, proof.CurrentPassword)
	case proof.QuestionID > 0 && proof.Answer != "":
		if u.QuestionID != nil && *u.QuestionID == proof.QuestionID {
			if verified, err = s.checkAnswer(ctx, u, proof.Answer); err != nil {
				return err
			}
		}
	}
	if !verified {
		return ErrUnauthorized
	}

	hash, err := hashSecret(newSecret)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	s.log.Infow("auth secret reset", "user_id", userID)
	return nil
}

// ReadSharedCredential расшифровывает запись ключом её владельца для участника группы.
// Право участника на чтение проверяется до вызова.
func (s *VaultService) ReadSharedCredential(ctx context.Context, granteeID int64, credentialID string) (*CredentialView, error) {
	c, err := s.creds.GetAnyByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	key, err := s.loadKey(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	v, err := s.open(key, c)
	if err != nil {
		s.log.Warnw("shared credential open failed", "credential_id", credentialID, "grantee_id", granteeID, "error", err)
		return nil, err
	}
	return v, nil
}

// ListSharedWithMe возвращает все записи, к которым участнику выдан доступ.
// Записи владельцев без ключа и нерасшифровываемые записи пропускаются.
func (s *VaultService) ListSharedWithMe(ctx context.Context, granteeID int64) ([]SharedCredentialView, error) {
	grants, err := s.shares.ListForGrantee(ctx, granteeID)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]string)
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		if _, seen := groups[g.CredentialID]; !seen {
			ids = append(ids, g.CredentialID)
		}
		groups[g.CredentialID] = append(groups[g.CredentialID], g.GroupName)
	}
	list, err := s.creds.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	keys := make(map[int64][]byte)
	out := make([]SharedCredentialView, 0, len(list))
	for i := range list {
		c := &list[i]
		key, ok := keys[c.UserID]
		if !ok {
			key, _ = s.loadKey(ctx, c.UserID)
			keys[c.UserID] = key
		}
		if key == nil {
			continue
		}
		v, err := s.open(key, c)
		if err != nil {
			s.log.Warnw("skip shared credential", "credential_id", c.ID, "error", err)
			continue
		}
		out = append(out, SharedCredentialView{CredentialView: *v, Groups: groups[c.ID]})
	}
	return out, nil
}

// Applications группирует записи владельца по приложению.
func (s *VaultService) Applications(ctx context.Context, ownerID int64) ([]ApplicationCount, error) {
	rows, err := s.creds.Applications(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicationCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, ApplicationCount{AppName: r.Name, Total: r.Count})
	}
	return out, nil
}

// ApplicationTypes группирует записи владельца по типу приложения.
func (s *VaultService) ApplicationTypes(ctx context.Context, ownerID int64) ([]ApplicationTypeCount, error) {
	rows, err := s.creds.ApplicationTypes(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicationTypeCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, ApplicationTypeCount{AppType: r.Name, Total: r.Count})
	}
	return out, nil
}
