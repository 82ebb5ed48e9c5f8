package handlers

import (
	"PassKeeper/internal/middleware"
	"PassKeeper/internal/service"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CredentialHandler — записи хранилища текущего пользователя и их анализ.
type CredentialHandler struct {
	VaultService *service.VaultService
	Logger       *zap.SugaredLogger
}

func NewCredentialHandler(vaultService *service.VaultService, logger *zap.SugaredLogger) *CredentialHandler {
	return &CredentialHandler{VaultService: vaultService, Logger: logger}
}

type createRequest struct {
	AppName         string  `json:"application_name"`
	AccountUsername string  `json:"account_user_name"`
	Password        string  `json:"application_password"`
	AppType         *string `json:"application_type"`
}

type updateRequest struct {
	Password        string  `json:"application_password"`
	AppName         *string `json:"application_name"`
	AccountUsername *string `json:"account_user_name"`
}

func queryInt(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Create новая запись
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.Logger.Warnw("Create: invalid request body", "user_id", userID, "error", err)
		badRequest(w, "invalid request")
		return
	}

	view, err := h.VaultService.CreateCredential(r.Context(), userID, service.CredentialInput{
		AppName:         req.AppName,
		AccountUsername: req.AccountUsername,
		Password:        req.Password,
		AppType:         req.AppType,
	})
	if err != nil {
		writeError(w, h.Logger, "Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// List страница записей с фильтрами application_name, application_type, skip, limit
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	skip, ok := queryInt(r, "skip")
	if !ok {
		badRequest(w, "invalid skip")
		return
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		badRequest(w, "invalid limit")
		return
	}

	q := r.URL.Query()
	page, err := h.VaultService.ListCredentials(r.Context(), userID, service.ListFilter{
		AppName: q.Get("application_name"),
		AppType: q.Get("application_type"),
		Skip:    skip,
		Limit:   limit,
	})
	if err != nil {
		writeError(w, h.Logger, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Recent последние добавленные записи, параметр limit
func (h *CredentialHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	limit, ok := queryInt(r, "limit")
	if !ok {
		badRequest(w, "invalid limit")
		return
	}
	list, err := h.VaultService.RecentCredentials(r.Context(), userID, limit)
	if err != nil {
		writeError(w, h.Logger, "Recent", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ByApplication все записи одного приложения
func (h *CredentialHandler) ByApplication(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	list, err := h.VaultService.CredentialsByApplication(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, h.Logger, "ByApplication", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	view, err := h.VaultService.GetCredential(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Update смена пароля записи, старый уходит в историю
func (h *CredentialHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request")
		return
	}

	view, err := h.VaultService.UpdateCredential(r.Context(), userID, chi.URLParam(r, "id"), service.CredentialUpdate{
		Password:        req.Password,
		AppName:         req.AppName,
		AccountUsername: req.AccountUsername,
	})
	if err != nil {
		writeError(w, h.Logger, "Update", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.VaultService.DeleteCredential(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Logger, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CredentialHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	items, err := h.VaultService.CredentialHistory(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "History", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CredentialHandler) Applications(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	apps, err := h.VaultService.Applications(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "Applications", err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *CredentialHandler) ApplicationTypes(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	types, err := h.VaultService.ApplicationTypes(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "ApplicationTypes", err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// Analysis отчёт о надёжности паролей
func (h *CredentialHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	report, err := h.VaultService.Analyze(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "Analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *CredentialHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	stats, err := h.VaultService.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "Stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
