package handlers

import (
	"PassKeeper/internal/middleware"
	"PassKeeper/internal/service"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GroupHandler — выдача доступа к записям участникам групп.
type GroupHandler struct {
	ShareService *service.ShareService
	VaultService *service.VaultService
	Logger       *zap.SugaredLogger
}

func NewGroupHandler(shareService *service.ShareService, vaultService *service.VaultService, logger *zap.SugaredLogger) *GroupHandler {
	return &GroupHandler{ShareService: shareService, VaultService: vaultService, Logger: logger}
}

type shareRequest struct {
	GroupName  string  `json:"group_name"`
	PasswordID string  `json:"password_id"`
	UserIDs    []int64 `json:"user_ids"`
}

func (req shareRequest) valid() bool {
	return req.GroupName != "" && req.PasswordID != "" && len(req.UserIDs) > 0
}

// Share выдаёт доступ к записи каждому из user_ids. Уже выданные доступы не дублируются.
func (h *GroupHandler) Share(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetUserIDFromContext(r.Context())
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil || !req.valid() {
		badRequest(w, "invalid request")
		return
	}

	granted := 0
	for _, uid := range req.UserIDs {
		created, err := h.ShareService.Grant(r.Context(), ownerID, req.GroupName, uid, req.PasswordID)
		if err != nil {
			writeError(w, h.Logger, "Share", err)
			return
		}
		if created {
			granted++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "granted": granted})
}

type shareAllRequest struct {
	GroupName  string `json:"group_name"`
	PasswordID string `json:"password_id"`
}

// ShareAll выдаёт доступ к записи всем участникам группы.
func (h *GroupHandler) ShareAll(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetUserIDFromContext(r.Context())
	var req shareAllRequest
	if err := decodeJSON(w, r, &req); err != nil || req.GroupName == "" || req.PasswordID == "" {
		badRequest(w, "invalid request")
		return
	}
	granted, err := h.ShareService.ShareAll(r.Context(), ownerID, req.GroupName, req.PasswordID)
	if err != nil {
		writeError(w, h.Logger, "ShareAll", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "granted": granted})
}

// Unshare отзывает доступ у каждого из user_ids.
func (h *GroupHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetUserIDFromContext(r.Context())
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil || !req.valid() {
		badRequest(w, "invalid request")
		return
	}

	for _, uid := range req.UserIDs {
		if err := h.ShareService.Revoke(r.Context(), ownerID, req.GroupName, uid, req.PasswordID); err != nil {
			writeError(w, h.Logger, "Unshare", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type groupNameRequest struct {
	GroupName string `json:"group_name"`
	NewName   string `json:"new_name"`
}

// Create создаёт группу, текущий пользователь становится администратором.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req groupNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request")
		return
	}
	created, err := h.ShareService.CreateGroup(r.Context(), userID, req.GroupName)
	if err != nil {
		writeError(w, h.Logger, "CreateGroup", err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Group already exists; you are admin"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Group created"})
}

// List группы текущего пользователя.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	list, err := h.ShareService.ListMyGroups(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "ListGroups", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Members состав группы, только для администратора.
func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	list, err := h.ShareService.Members(r.Context(), userID, chi.URLParam(r, "group"))
	if err != nil {
		writeError(w, h.Logger, "Members", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// RemoveMember исключает участника или выводит из группы самого пользователя.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	memberID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || memberID <= 0 {
		badRequest(w, "invalid user id")
		return
	}
	if err := h.ShareService.RemoveMember(r.Context(), userID, chi.URLParam(r, "group"), memberID); err != nil {
		writeError(w, h.Logger, "RemoveMember", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Member removed"})
}

// Rename переименовывает группу.
func (h *GroupHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req groupNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request")
		return
	}
	name, err := h.ShareService.RenameGroup(r.Context(), userID, req.GroupName, req.NewName)
	if err != nil {
		writeError(w, h.Logger, "RenameGroup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "new_name": name})
}

// Delete удаляет группу целиком.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.ShareService.DeleteGroup(r.Context(), userID, chi.URLParam(r, "group")); err != nil {
		writeError(w, h.Logger, "DeleteGroup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Group deleted"})
}

// GroupShares все доступы группы, только для администратора.
func (h *GroupHandler) GroupShares(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetUserIDFromContext(r.Context())
	grants, err := h.ShareService.ListGroup(r.Context(), ownerID, chi.URLParam(r, "group"))
	if err != nil {
		writeError(w, h.Logger, "GroupShares", err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// SharedWithMe записи других пользователей, доступные текущему.
func (h *GroupHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	list, err := h.VaultService.ListSharedWithMe(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "SharedWithMe", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SharedPassword одна доступная запись. Без доступа ответ такой же, как для несуществующей.
func (h *GroupHandler) SharedPassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	ok, err := h.ShareService.CanRead(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.Logger, "SharedPassword", err)
		return
	}
	if !ok {
		writeError(w, h.Logger, "SharedPassword", service.ErrNotFound)
		return
	}

	view, err := h.VaultService.ReadSharedCredential(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.Logger, "SharedPassword", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
