package service

import (
	"PassKeeper/internal/crypto"
	"PassKeeper/internal/keystore"
	"PassKeeper/internal/model"
	"PassKeeper/internal/repo"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// быстрые параметры KDF для тестов
var testParams = crypto.Params{Time: 1, MemoryKiB: 1024, Threads: 1}

const testSecret = "Tr0ub4dor&3"

type fixture struct {
	db     *gorm.DB
	users  repo.UserRepository
	creds  repo.CredentialRepository
	shares repo.ShareRepository
	groups repo.GroupRepository
	keys   *keystore.FileStore
	vault  *VaultService
	user   *UserService
	share  *ShareService
	msg    *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	w, err := keystore.NewWrapper("test-keystore-secret")
	require.NoError(t, err)
	keys, err := keystore.NewFileStore(filepath.Join(t.TempDir(), "keys"), w)
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	f := &fixture{
		db:     db,
		users:  repo.NewUserRepository(db),
		creds:  repo.NewCredentialRepository(db),
		shares: repo.NewShareRepository(db),
		groups: repo.NewGroupRepository(db),
		keys:   keys,
	}
	f.vault = NewVaultService(f.users, f.creds, f.shares, keys, crypto.NewDeriver(testParams, 2), log)
	f.user = NewUserService(f.users, repo.NewQuestionRepository(db), f.vault, keys, log)
	f.share = NewShareService(f.shares, f.groups, f.creds, f.users, log)
	f.msg = NewMessageService(repo.NewMessageRepository(db), f.groups, f.users, log)
	return f
}

// register создаёт пользователя с ответом "Fluffy" на первый вопрос.
func (f *fixture) register(t *testing.T, login string) *model.User {
	t.Helper()
	u, err := f.user.Register(context.Background(), login, testSecret, 1, "Fluffy")
	require.NoError(t, err)
	return u
}

func (f *fixture) create(t *testing.T, ownerID int64, app, username, password string) *CredentialView {
	t.Helper()
	v, err := f.vault.CreateCredential(context.Background(), ownerID, CredentialInput{
		AppName:         app,
		AccountUsername: username,
		Password:        password,
	})
	require.NoError(t, err)
	return v
}

// group создаёт группу с администратором adminID.
func (f *fixture) group(t *testing.T, adminID int64, name string) {
	t.Helper()
	created, err := f.share.CreateGroup(context.Background(), adminID, name)
	require.NoError(t, err)
	require.True(t, created)
}
