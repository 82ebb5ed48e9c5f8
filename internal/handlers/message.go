package handlers

import (
	"PassKeeper/internal/middleware"
	"PassKeeper/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MessageHandler — входящие сообщения: запросы доверия и приглашения в группы.
type MessageHandler struct {
	MessageService *service.MessageService
	Logger         *zap.SugaredLogger
}

func NewMessageHandler(messageService *service.MessageService, logger *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{MessageService: messageService, Logger: logger}
}

type messageRequest struct {
	TargetUsername string `json:"target_username"`
	GroupName      string `json:"group_name"`
}

// Inbox ожидающие сообщения текущего пользователя
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	list, err := h.MessageService.Inbox(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "Inbox", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Count число ожидающих сообщений
func (h *MessageHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	n, err := h.MessageService.PendingCount(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, "Count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// TrustedUserRequest запрос доверия другому пользователю
func (h *MessageHandler) TrustedUserRequest(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request")
		return
	}
	if err := h.MessageService.RequestTrust(r.Context(), userID, req.TargetUsername); err != nil {
		writeError(w, h.Logger, "TrustedUserRequest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Request sent successfully"})
}

// GroupInvitation приглашение в группу
func (h *MessageHandler) GroupInvitation(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request")
		return
	}
	if err := h.MessageService.InviteToGroup(r.Context(), userID, req.TargetUsername, req.GroupName); err != nil {
		writeError(w, h.Logger, "GroupInvitation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Invitation sent successfully"})
}

// Accept принимает сообщение
func (h *MessageHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	m, err := h.MessageService.Accept(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "Accept", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": m})
}

// Reject отклоняет сообщение
func (h *MessageHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	m, err := h.MessageService.Reject(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "Reject", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": m})
}
