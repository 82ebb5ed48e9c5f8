package handlers_test

import (
	"PassKeeper/internal/service"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroups_ShareFlow(t *testing.T) {
	router := newTestRouter(t)
	alice := signup(t, router, "alice")
	bob := signup(t, router, "bob")
	carol := signup(t, router, "carol")
	c := createCredential(t, router, alice.AccessToken, "bank", "alice", "hunter2")

	// до выдачи доступа запись неотличима от несуществующей
	rr := do(t, router, http.MethodGet, "/api/groups/shared/passwords/"+c.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	share := map[string]any{"group_name": "family", "password_id": c.ID, "user_ids": []int64{bob.UserID}}
	// группы ещё нет: делиться в ней нельзя
	rr = do(t, router, http.MethodPost, "/api/groups/share", alice.AccessToken, share)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/groups/create", alice.AccessToken, map[string]string{"group_name": "family"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodPost, "/api/groups/share", alice.AccessToken, share)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success":true,"granted":1}`, rr.Body.String())

	// повторная выдача ничего не добавляет
	rr = do(t, router, http.MethodPost, "/api/groups/share", alice.AccessToken, share)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"granted":0}`, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/api/groups/shared/passwords/"+c.ID, bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	shared := decode[service.CredentialView](t, rr)
	assert.Equal(t, c.Password, shared.Password)
	assert.Equal(t, c.AccountUsername, shared.AccountUsername)
	assert.Equal(t, alice.UserID, shared.UserID)

	rr = do(t, router, http.MethodGet, "/api/groups/shared/passwords/"+c.ID, carol.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/groups/shared/passwords", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]service.SharedCredentialView](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"family"}, list[0].Groups)

	rr = do(t, router, http.MethodGet, "/api/groups/family/shares", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	grants := decode[[]service.GrantView](t, rr)
	require.Len(t, grants, 1)
	assert.Equal(t, "bob", grants[0].GranteeLogin)

	// получатель стал рядовым участником: управлять доступами не может
	rr = do(t, router, http.MethodGet, "/api/groups/family/shared/passwords", bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = do(t, router, http.MethodPost, "/api/groups/unshare", bob.AccessToken, share)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/groups/unshare", alice.AccessToken, share)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/groups/shared/passwords/"+c.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/groups/unshare", alice.AccessToken, share)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGroups_ShareRejects(t *testing.T) {
	router := newTestRouter(t)
	alice := signup(t, router, "alice")
	bob := signup(t, router, "bob")
	c := createCredential(t, router, alice.AccessToken, "bank", "alice", "hunter2")
	rr := do(t, router, http.MethodPost, "/api/groups/create", alice.AccessToken, map[string]string{"group_name": "g"})
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("self", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/groups/share", alice.AccessToken,
			map[string]any{"group_name": "g", "password_id": c.ID, "user_ids": []int64{alice.UserID}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not owner", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/groups/share", bob.AccessToken,
			map[string]any{"group_name": "g", "password_id": c.ID, "user_ids": []int64{alice.UserID}})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("unknown grantee", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/groups/share", alice.AccessToken,
			map[string]any{"group_name": "g", "password_id": c.ID, "user_ids": []int64{9999}})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("empty request", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/groups/share", alice.AccessToken,
			map[string]any{"group_name": "g", "password_id": c.ID})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGroups_Management(t *testing.T) {
	router := newTestRouter(t)
	alice := signup(t, router, "alice")
	bob := signup(t, router, "bob")
	carol := signup(t, router, "carol")
	c := createCredential(t, router, alice.AccessToken, "bank", "alice", "hunter2")

	rr := do(t, router, http.MethodPost, "/api/groups/create", alice.AccessToken, map[string]string{"group_name": "team"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(t, router, http.MethodPost, "/api/groups/create", alice.AccessToken, map[string]string{"group_name": "team"})
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, router, http.MethodPost, "/api/groups/create", bob.AccessToken, map[string]string{"group_name": "team"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"group name already in use"}`, rr.Body.String())
	rr = do(t, router, http.MethodPost, "/api/groups/create", bob.AccessToken, map[string]string{"group_name": " "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// участники через приглашение
	for _, name := range []string{"bob", "carol"} {
		rr = do(t, router, http.MethodPost, "/api/messages/group-invitation", alice.AccessToken,
			map[string]string{"target_username": name, "group_name": "team"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	for _, tok := range []string{bob.AccessToken, carol.AccessToken} {
		rr = do(t, router, http.MethodGet, "/api/messages", tok, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		inbox := decode[[]service.MessageView](t, rr)
		require.Len(t, inbox, 1)
		rr = do(t, router, http.MethodPost, "/api/messages/"+inbox[0].ID+"/accept", tok, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = do(t, router, http.MethodGet, "/api/groups/list", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"group_name":"team","member_count":3,"is_admin":false}]`, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/api/groups/team/members", bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/groups/team/members", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	members := decode[[]service.MemberView](t, rr)
	require.Len(t, members, 3)
	assert.Equal(t, "alice", members[0].Username)

	rr = do(t, router, http.MethodPost, "/api/groups/share-all", alice.AccessToken,
		map[string]any{"group_name": "team", "password_id": c.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success":true,"granted":2}`, rr.Body.String())
	rr = do(t, router, http.MethodGet, "/api/groups/shared/passwords/"+c.ID, carol.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// исключение снимает доступ
	rr = do(t, router, http.MethodDelete, "/api/groups/team/members/"+strconv.FormatInt(carol.UserID, 10), bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = do(t, router, http.MethodDelete, "/api/groups/team/members/"+strconv.FormatInt(carol.UserID, 10), alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/groups/shared/passwords/"+c.ID, carol.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, router, http.MethodDelete, "/api/groups/team/members/"+strconv.FormatInt(alice.UserID, 10), alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, router, http.MethodDelete, "/api/groups/team/members/abc", alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPut, "/api/groups/rename", bob.AccessToken, map[string]string{"group_name": "team", "new_name": "crew"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = do(t, router, http.MethodPut, "/api/groups/rename", alice.AccessToken, map[string]string{"group_name": "team", "new_name": " crew "})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"new_name":"crew"}`, rr.Body.String())

	rr = do(t, router, http.MethodGet, "/api/groups", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"group_name":"crew","member_count":2,"is_admin":false}]`, rr.Body.String())

	rr = do(t, router, http.MethodDelete, "/api/groups/crew", bob.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = do(t, router, http.MethodDelete, "/api/groups/crew", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/groups/shared/passwords/"+c.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, router, http.MethodGet, "/api/groups", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
