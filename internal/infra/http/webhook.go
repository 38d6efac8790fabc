package http

import (
	"crypto/hmac"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// SecretTokenHeader — заголовок, которым Telegram подписывает webhook-запросы.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// ErrBadSecret возвращается при неверном секрете webhook.
var ErrBadSecret = errors.New("webhook secret mismatch")

// WebhookSecretMiddleware проверяет секрет webhook. Пустой секрет отключает проверку.
func WebhookSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" && !hmac.Equal([]byte(r.Header.Get(SecretTokenHeader)), []byte(secret)) {
				WriteError(w, http.StatusUnauthorized, ErrBadSecret)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}
