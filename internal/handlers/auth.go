package handlers

import (
	"PassKeeper/internal/config"
	"PassKeeper/internal/middleware"
	"PassKeeper/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// AuthHandler обрабатывает регистрацию, вход и восстановление доступа.
type AuthHandler struct {
	UserService  *service.UserService
	VaultService *service.VaultService
	Logger       *zap.SugaredLogger
	Config       *config.Config
}

// NewAuthHandler создаёт хендлер auth
func NewAuthHandler(userService *service.UserService, vaultService *service.VaultService, logger *zap.SugaredLogger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{UserService: userService, VaultService: vaultService, Logger: logger, Config: cfg}
}

type signupRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	QuestionID      int64  `json:"question_id"`
	Answer          string `json:"answer"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse — ответ на вход и регистрацию. Токен дублируется в cookie.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
}

type forgotRequest struct {
	Username   string `json:"username"`
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

type resetRequest struct {
	UserID          int64  `json:"user_id"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	QuestionID      int64  `json:"question_id"`
	Answer          string `json:"answer"`
}

// issue выдаёт токен в теле ответа и в cookie.
func (h *AuthHandler) issue(w http.ResponseWriter, status int, userID int64, login string) {
	token, exp, err := middleware.IssueToken(userID, h.Config.AuthSecret)
	if err != nil {
		h.Logger.Errorw("issue token failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Config.EnableHTTPS,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, status, TokenResponse{AccessToken: token, TokenType: "bearer", UserID: userID, Username: login})
}

// Signup регистрация пользователя
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.Logger.Warnw("Signup: invalid request body", "error", err)
		badRequest(w, "invalid request")
		return
	}
	if req.Password != req.ConfirmPassword {
		badRequest(w, "passwords do not match")
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Username, req.Password, req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, h.Logger, "Signup", err)
		return
	}
	h.issue(w, http.StatusCreated, user.ID, user.Login)
}

// Login вход по логину и паролю
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.Logger.Warnw("Login: invalid request body", "error", err)
		badRequest(w, "invalid request")
		return
	}

	user, err := h.UserService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.Logger, "Login", err)
		return
	}
	h.issue(w, http.StatusOK, user.ID, user.Login)
}

// Logout сбрасывает cookie сессии.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Questions справочник контрольных вопросов
func (h *AuthHandler) Questions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.UserService.Questions(r.Context())
	if err != nil {
		writeError(w, h.Logger, "Questions", err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

// ForgotPassword проверяет ответ на контрольный вопрос.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request")
		return
	}

	id, err := h.VaultService.VerifyRecoveryAnswer(r.Context(), req.Username, req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, h.Logger, "ForgotPassword", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": id})
}

// ResetPassword меняет пароль входа по текущему паролю либо ответу на вопрос.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request")
		return
	}
	if req.UserID <= 0 {
		badRequest(w, "invalid user_id")
		return
	}

	proof := service.ResetProof{CurrentPassword: req.CurrentPassword, QuestionID: req.QuestionID, Answer: req.Answer}
	if err := h.VaultService.ResetAuthSecret(r.Context(), req.UserID, req.NewPassword, proof); err != nil {
		writeError(w, h.Logger, "ResetPassword", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password reset successfully"})
}

// DeleteAccount удаляет текущего пользователя вместе с его данными.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.UserService.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, h.Logger, "DeleteAccount", err)
		return
	}
	middleware.ClearLoginCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SearchUsers поиск других пользователей по части логина, параметры q и limit.
func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	limit, ok := queryInt(r, "limit")
	if !ok {
		badRequest(w, "invalid limit")
		return
	}
	list, err := h.UserService.SearchUsers(r.Context(), userID, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, h.Logger, "SearchUsers", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
