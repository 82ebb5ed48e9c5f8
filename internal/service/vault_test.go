package service

import (
	"PassKeeper/internal/crypto"
	"PassKeeper/internal/model"
	"bytes"
	"context"
	stdaes "crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_CreateAndGet_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")

	appType := "vcs"
	created, err := f.vault.CreateCredential(ctx, u.ID, CredentialInput{
		AppName:         "  GitHub\n",
		AccountUsername: "alice@example.com",
		Password:        "hunter2",
		AppType:         &appType,
	})
	require.NoError(t, err)
	assert.Equal(t, "GitHub", created.AppName)
	assert.Equal(t, "hunter2", created.Password)
	assert.NotEmpty(t, created.ID)

	got, err := f.vault.GetCredential(ctx, u.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.AccountUsername)
	assert.Equal(t, "hunter2", got.Password)
	require.NotNil(t, got.AppType)
	assert.Equal(t, "vcs", *got.AppType)

	// в БД только шифртекст, поля запечатаны независимо
	rec, err := f.creds.GetByID(ctx, u.ID, created.ID)
	require.NoError(t, err)
	assert.NotContains(t, rec.PasswordCipher, "hunter2")
	assert.NotEqual(t, rec.PasswordCipher, rec.UsernameCipher)
	assert.Equal(t, string(crypto.ModeGCM), rec.CipherMode)
}

func TestVault_CreateCredential_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")

	cases := []CredentialInput{
		{AppName: "", AccountUsername: "u", Password: "p"},
		{AppName: "app", AccountUsername: " \n ", Password: "p"},
		{AppName: "app", AccountUsername: "u", Password: ""},
		{AppName: strings.Repeat("a", 256), AccountUsername: "u", Password: "p"},
		{AppName: "app", AccountUsername: "u", Password: strings.Repeat("p", 101)},
	}
	for i, in := range cases {
		_, err := f.vault.CreateCredential(ctx, u.ID, in)
		assert.ErrorIs(t, err, ErrInvalidInput, "case %d", i)
	}
}

func TestVault_MissingKey_EncryptionUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// пользователь без ключа в хранилище
	u, err := f.users.CreateUser(ctx, &model.User{Login: "nokey", Password: "x"})
	require.NoError(t, err)

	_, err = f.vault.CreateCredential(ctx, u.ID, CredentialInput{AppName: "a", AccountUsername: "u", Password: "p"})
	assert.ErrorIs(t, err, ErrEncryptionUnavailable)

	_, err = f.vault.ListCredentials(ctx, u.ID, ListFilter{})
	assert.ErrorIs(t, err, ErrEncryptionUnavailable)
}

func TestVault_GetCredential_NotFoundForOtherOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	c := f.create(t, alice.ID, "mail", "alice", "pw")

	_, err := f.vault.GetCredential(ctx, bob.ID, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.vault.GetCredential(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.vault.UpdateCredential(ctx, bob.ID, c.ID, CredentialUpdate{Password: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.vault.DeleteCredential(ctx, bob.ID, c.ID), ErrNotFound)
}

func TestVault_GetCredential_TamperedIsAuthFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	c := f.create(t, u.ID, "mail", "alice", "pw")

	rec, err := f.creds.GetByID(ctx, u.ID, c.ID)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(rec.PasswordCipher)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	rec.PasswordCipher = base64.StdEncoding.EncodeToString(raw)
	require.NoError(t, f.creds.Update(ctx, rec))

	_, err = f.vault.GetCredential(ctx, u.ID, c.ID)
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

func TestVault_List_SkipsCorruptRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	f.create(t, u.ID, "a", "u1", "p1")
	f.create(t, u.ID, "b", "u2", "p2")

	// запись, которую не открыть
	require.NoError(t, f.creds.Create(ctx, &model.Credential{
		ID: "broken", UserID: u.ID, AppName: "c",
		UsernameCipher: "garbage", PasswordCipher: "garbage", CipherMode: "gcm",
	}))

	page, err := f.vault.ListCredentials(ctx, u.ID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	for _, v := range page.Items {
		assert.NotEqual(t, "broken", v.ID)
	}

	page, err = f.vault.ListCredentials(ctx, u.ID, ListFilter{AppName: "b"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p2", page.Items[0].Password)
}

func TestVault_List_LimitClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	for i := 0; i < 3; i++ {
		f.create(t, u.ID, fmt.Sprintf("app%d", i), "u", "p")
	}

	page, err := f.vault.ListCredentials(ctx, u.ID, ListFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)

	page, err = f.vault.ListCredentials(ctx, u.ID, ListFilter{Skip: 2, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Total)
}

func TestVault_Rotation_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	c := f.create(t, u.ID, "bank", "alice", "p1")

	for _, pw := range []string{"p2", "p3", "p4"} {
		_, err := f.vault.UpdateCredential(ctx, u.ID, c.ID, CredentialUpdate{Password: pw})
		require.NoError(t, err)
	}

	got, err := f.vault.GetCredential(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "p4", got.Password)
	assert.Equal(t, "alice", got.AccountUsername)

	hist, err := f.vault.CredentialHistory(ctx, u.ID, c.ID)
	require.NoError(t, err)
	var plain []string
	for _, h := range hist {
		plain = append(plain, h.Password)
	}
	assert.Equal(t, []string{"p3", "p2", "p1"}, plain)
}

func TestVault_Rotation_DepthFive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	c := f.create(t, u.ID, "bank", "alice", "v0")

	for i := 1; i <= 6; i++ {
		_, err := f.vault.UpdateCredential(ctx, u.ID, c.ID, CredentialUpdate{Password: fmt.Sprintf("v%d", i)})
		require.NoError(t, err)
	}

	hist, err := f.vault.CredentialHistory(ctx, u.ID, c.ID)
	require.NoError(t, err)
	var plain []string
	for _, h := range hist {
		plain = append(plain, h.Password)
	}
	// v0 вытеснен
	assert.Equal(t, []string{"v5", "v4", "v3", "v2", "v1"}, plain)

	rec, err := f.creds.GetByID(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, rec.History, model.HistoryDepth)
}

func TestVault_Update_OptionalFieldsAndStrength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	c := f.create(t, u.ID, "bank", "alice", "12345678")
	assert.Equal(t, 0, c.Strength)

	name := "Bank of Tests"
	user := "alice.b"
	v, err := f.vault.UpdateCredential(ctx, u.ID, c.ID, CredentialUpdate{Password: "Tr0ub4dor&3xyz", AppName: &name, AccountUsername: &user})
	require.NoError(t, err)
	assert.Equal(t, "Bank of Tests", v.AppName)
	assert.Equal(t, "alice.b", v.AccountUsername)
	assert.Equal(t, 90, v.Strength)

	got, err := f.vault.GetCredential(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice.b", got.AccountUsername)
	assert.Equal(t, 90, got.Strength)

	_, err = f.vault.UpdateCredential(ctx, u.ID, c.ID, CredentialUpdate{Password: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVault_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	c := f.create(t, u.ID, "bank", "alice", "pw")

	require.NoError(t, f.vault.DeleteCredential(ctx, u.ID, c.ID))
	_, err := f.vault.GetCredential(ctx, u.ID, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.vault.DeleteCredential(ctx, u.ID, c.ID), ErrNotFound)
}

// legacySeal повторяет старый формат: base64(iv ‖ AES-CBC(PKCS#7)).
func legacySeal(t *testing.T, key []byte, plain string) string {
	t.Helper()
	block, err := stdaes.NewCipher(key)
	require.NoError(t, err)
	pad := stdaes.BlockSize - len(plain)%stdaes.BlockSize
	data := append([]byte(plain), bytes.Repeat([]byte{byte(pad)}, pad)...)
	iv := bytes.Repeat([]byte{9}, stdaes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(append(iv, out...))
}

func TestVault_LegacyCBCRecord_ReadAndUpgradeOnUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	key, err := f.keys.Load(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, f.creds.Create(ctx, &model.Credential{
		ID: "legacy", UserID: u.ID, AppName: "old",
		UsernameCipher: legacySeal(t, key, "olduser"),
		PasswordCipher: legacySeal(t, key, "oldpass"),
		CipherMode:     string(crypto.ModeLegacyCBC),
	}))

	got, err := f.vault.GetCredential(ctx, u.ID, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "oldpass", got.Password)
	assert.Equal(t, "olduser", got.AccountUsername)

	_, err = f.vault.UpdateCredential(ctx, u.ID, "legacy", CredentialUpdate{Password: "newpass"})
	require.NoError(t, err)

	rec, err := f.creds.GetByID(ctx, u.ID, "legacy")
	require.NoError(t, err)
	assert.Equal(t, string(crypto.ModeGCM), rec.CipherMode)
	require.Len(t, rec.History, 1)
	assert.Equal(t, string(crypto.ModeLegacyCBC), rec.History[0].Mode)

	got, err = f.vault.GetCredential(ctx, u.ID, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "newpass", got.Password)
	assert.Equal(t, "olduser", got.AccountUsername)

	hist, err := f.vault.CredentialHistory(ctx, u.ID, "legacy")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "oldpass", hist[0].Password)
}

func TestVault_ApplicationsAndTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")
	social := "social"
	for _, app := range []string{"mastodon", "mastodon", "matrix"} {
		_, err := f.vault.CreateCredential(ctx, u.ID, CredentialInput{AppName: app, AccountUsername: "u", Password: "p", AppType: &social})
		require.NoError(t, err)
	}

	apps, err := f.vault.Applications(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []ApplicationCount{{AppName: "mastodon", Total: 2}, {AppName: "matrix", Total: 1}}, apps)

	types, err := f.vault.ApplicationTypes(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []ApplicationTypeCount{{AppType: "social", Total: 3}}, types)
}

func TestPushHistory(t *testing.T) {
	var h []model.HistoryEntry
	for i := 0; i < 7; i++ {
		h = pushHistory(h, model.HistoryEntry{Cipher: fmt.Sprint(i)})
	}
	require.Len(t, h, model.HistoryDepth)
	assert.Equal(t, "6", h[0].Cipher)
	assert.Equal(t, "2", h[4].Cipher)
}

func TestVault_RecentAndByApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	f.create(t, alice.ID, "mail", "zed", "p1")
	f.create(t, alice.ID, "mail", "amy", "p2")
	f.create(t, alice.ID, "wifi", "office", "p3")
	f.create(t, bob.ID, "mail", "bob", "p4")

	recent, err := f.vault.RecentCredentials(ctx, alice.ID, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	recent, err = f.vault.RecentCredentials(ctx, alice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
	for _, v := range recent {
		assert.Equal(t, alice.ID, v.UserID)
	}

	// сортировка по расшифрованному имени учётной записи
	byApp, err := f.vault.CredentialsByApplication(ctx, alice.ID, " mail ")
	require.NoError(t, err)
	require.Len(t, byApp, 2)
	assert.Equal(t, "amy", byApp[0].AccountUsername)
	assert.Equal(t, "p2", byApp[0].Password)
	assert.Equal(t, "zed", byApp[1].AccountUsername)

	byApp, err = f.vault.CredentialsByApplication(ctx, alice.ID, "absent")
	require.NoError(t, err)
	assert.Empty(t, byApp)

	_, err = f.vault.CredentialsByApplication(ctx, alice.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
