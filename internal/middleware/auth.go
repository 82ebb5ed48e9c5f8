package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName — cookie с токеном сессии.
const CookieName = "auth_token"

const issuer = "passkeeper"

type ctxKey struct{}

var tokenTTL = 24 * time.Hour

// SetTokenTTL задаёт срок жизни выдаваемых токенов.
func SetTokenTTL(d time.Duration) {
	if d > 0 {
		tokenTTL = d
	}
}

// IssueToken подписывает JWT (HS256) с id пользователя в subject.
func IssueToken(userID int64, secret string) (string, time.Time, error) {
	exp := time.Now().Add(tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// SetLoginCookie выдаёт токен и кладёт его в HttpOnly cookie.
func SetLoginCookie(w http.ResponseWriter, userID int64, secret string) error {
	token, exp, err := IssueToken(userID, secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// ClearLoginCookie удаляет cookie сессии.
func ClearLoginCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// ParseToken проверяет подпись и срок токена и возвращает id пользователя.
func ParseToken(token, secret string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithAuth кладёт id пользователя в контекст, если запрос несёт валидный токен
// (заголовок Authorization: Bearer или cookie). Анонимные запросы пропускаются дальше.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := tokenFromRequest(r); token != "" {
				if id, err := ParseToken(token, secret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))
				} else if log != nil {
					log.Debugw("token rejected", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth отвечает 401, если WithAuth не нашёл пользователя.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserIDFromContext возвращает id пользователя, положенный WithAuth.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// WithUserID кладёт id пользователя в контекст. Нужен тестам обработчиков.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}
