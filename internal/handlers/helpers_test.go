package handlers_test

import (
	"PassKeeper/internal/config"
	"PassKeeper/internal/crypto"
	"PassKeeper/internal/handlers"
	"PassKeeper/internal/keystore"
	"PassKeeper/internal/repo"
	"PassKeeper/internal/service"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const testSecret = "Tr0ub4dor&3"

// newTestRouter собирает роутер на in-memory SQLite и файловом хранилище ключей.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: fmt.Sprintf("file:h_%s?mode=memory&cache=shared", name)}, &gorm.Config{})
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

	cfg := &config.Config{AuthSecret: "test-secret"}
	logger := zap.NewNop().Sugar()

	users := repo.NewUserRepository(db)
	creds := repo.NewCredentialRepository(db)
	shares := repo.NewShareRepository(db)
	groups := repo.NewGroupRepository(db)
	deriver := crypto.NewDeriver(crypto.Params{Time: 1, MemoryKiB: 1024, Threads: 1}, 2)

	vaultSvc := service.NewVaultService(users, creds, shares, keys, deriver, logger)
	userSvc := service.NewUserService(users, repo.NewQuestionRepository(db), vaultSvc, keys, logger)
	shareSvc := service.NewShareService(shares, groups, creds, users, logger)
	messageSvc := service.NewMessageService(repo.NewMessageRepository(db), groups, users, logger)

	return handlers.NewHandler(userSvc, vaultSvc, shareSvc, messageSvc, logger, cfg).Router
}

// do выполняет запрос; непустой token уходит в заголовок Authorization.
func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// signup регистрирует пользователя с ответом "Fluffy" на первый вопрос.
func signup(t *testing.T, router http.Handler, username string) handlers.TokenResponse {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username":         username,
		"password":         testSecret,
		"confirm_password": testSecret,
		"question_id":      1,
		"answer":           "Fluffy",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[handlers.TokenResponse](t, rr)
}

func createCredential(t *testing.T, router http.Handler, token, app, user, password string) service.CredentialView {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/api/passwords", token, map[string]any{
		"application_name":     app,
		"account_user_name":    user,
		"application_password": password,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[service.CredentialView](t, rr)
}
