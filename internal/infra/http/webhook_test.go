package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSecretMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := WebhookSecretMiddleware("s3cret")(ok)

	req := httptest.NewRequest(http.MethodPost, "/bot/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("без заголовка ожидали 401, получили %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error != ErrBadSecret.Error() {
		t.Fatalf("неожиданное тело ошибки: %+v, %v", body, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/bot/webhook", nil)
	req.Header.Set(SecretTokenHeader, "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("с верным секретом ожидали 204, получили %d", rec.Code)
	}
}

func TestWebhookSecretDisabled(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	WebhookSecretMiddleware("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("пустой секрет не должен блокировать, код %d", rec.Code)
	}
}
