package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/meibo/internal/token"
)

// mockVerifier はTokenVerifierのモック実装。
type mockVerifier struct {
	verifyFunc func(tokenString string) (*token.Claims, error)
}

func (m *mockVerifier) Verify(tokenString string) (*token.Claims, error) {
	return m.verifyFunc(tokenString)
}

func validClaimsVerifier(userID string, roles []string) *mockVerifier {
	return &mockVerifier{
		verifyFunc: func(tokenString string) (*token.Claims, error) {
			if tokenString != "valid-token" {
				return nil, fmt.Errorf("access token is invalid")
			}
			return &token.Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
				Roles:            roles,
			}, nil
		},
	}
}

// TestJWTMiddleware_ValidToken は有効なBearerトークンでユーザーIDとロールが
// コンテキストに注入されることを検証する。
func TestJWTMiddleware_ValidToken(t *testing.T) {
	mw := NewJWTMiddleware(validClaimsVerifier("user-jwt-test", []string{"employee"}))

	var capturedUserID string
	var capturedRoles []string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
		capturedRoles = RolesFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-jwt-test" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-jwt-test")
	}
	if len(capturedRoles) != 1 || capturedRoles[0] != "employee" {
		t.Errorf("roles = %v, want [employee]", capturedRoles)
	}
}

// TestJWTMiddleware_MissingHeader はAuthorizationヘッダーがない場合に401が返ることを検証する。
func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mw := NewJWTMiddleware(validClaimsVerifier("user-1", nil))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestJWTMiddleware_MalformedHeader はBearer形式でないヘッダーに401が返ることを検証する。
func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	mw := NewJWTMiddleware(validClaimsVerifier("user-1", nil))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	tests := []string{
		"valid-token",
		"Basic dXNlcjpwYXNz",
		"Bearer",
		"Bearer ",
	}

	for _, header := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want %d", header, w.Result().StatusCode, http.StatusUnauthorized)
		}
	}
}

// TestJWTMiddleware_InvalidToken は検証に失敗するトークンに401が返ることを検証する。
func TestJWTMiddleware_InvalidToken(t *testing.T) {
	mw := NewJWTMiddleware(validClaimsVerifier("user-1", nil))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer tampered-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestJWTMiddleware_ChainWithCORSAndRateLimit はCORS → JWT → レート制限の
// チェーンでリクエストが通ることを検証する。
func TestJWTMiddleware_ChainWithCORSAndRateLimit(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	corsMW := NewCORSMiddleware("http://localhost:3000")
	jwtMW := NewJWTMiddleware(validClaimsVerifier("user-chain", []string{"employee"}))
	rateMW := rl.GeneralMiddleware()

	handler := corsMW(jwtMW(rateMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))))

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if origin := w.Result().Header.Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want %q", origin, "http://localhost:3000")
	}
}
