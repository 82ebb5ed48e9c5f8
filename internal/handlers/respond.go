package handlers

import (
	"PassKeeper/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxBodyBytes — предел тела JSON-запроса.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON читает тело запроса в v. Неизвестные поля игнорируются.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor сопоставляет ошибку сервиса HTTP-статусу.
// ErrNotFound и ErrAuthenticationFailure неразличимы для клиента.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrAuthenticationFailure),
		errors.Is(err, service.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrLoginTaken),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает статусом по ошибке сервиса. Для 500 текст ошибки наружу не уходит.
func writeError(w http.ResponseWriter, log *zap.SugaredLogger, op string, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	switch status {
	case http.StatusBadRequest:
		msg = strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
	case http.StatusConflict:
		msg = strings.TrimPrefix(err.Error(), service.ErrConflict.Error()+": ")
	case http.StatusForbidden:
		msg = "only group admins can do this"
	case http.StatusNotFound:
		if errors.Is(err, service.ErrQuestionNotFound) {
			msg = err.Error()
		}
	case http.StatusInternalServerError:
		log.Errorw(op+": service error", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
