package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/meibo/internal/auth"
	"github.com/hitoshi/meibo/internal/middleware"
	"github.com/hitoshi/meibo/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, email, password, displayName string) (auth.RegistrationStatus, error)
	// Login は資格情報を検証し、トークンの組を発行する。
	Login(ctx context.Context, email, password, origin, agent string) (*auth.LoginResult, error)
	// Refresh はリフレッシュトークンから新しいアクセストークンを発行する。
	Refresh(ctx context.Context, secret, origin, agent string) (string, error)
	// Logout は指定ユーザーの全リフレッシュトークンを失効させる。
	Logout(ctx context.Context, userID string) error
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DisplayName     string `json:"displayName"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshRequest はトークンリフレッシュリクエストのボディ。
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse はトークンリフレッシュ成功時のレスポンス。
type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Register はユーザー登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBodyResponse(w)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("メールアドレスとパスワードを指定してください"))
		return
	}
	if req.Password != req.ConfirmPassword {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewPasswordMismatchError())
		return
	}

	status, err := h.service.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	switch status {
	case auth.RegistrationSuccess:
		writeJSONResponse(w, http.StatusOK, map[string]string{
			"message": "ユーザーを登録しました。",
		})
	case auth.RegistrationUserAlreadyExists:
		writeAPIErrorResponse(w, http.StatusConflict, model.NewUserAlreadyExistsError())
	default:
		handleServiceError(w, err)
	}
}

// Login はログインを処理する。
// POST /auth/login
//
// リフレッシュトークンには呼び出し元のIPアドレス（X-Forwarded-Forの先頭ホップ、
// なければRemoteAddr）とUser-Agentヘッダーが発行時の値として記録される。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBodyResponse(w)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password,
		middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidCredentialsError())
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// Refresh はトークンリフレッシュを処理する。
// POST /auth/refresh-token
//
// リフレッシュトークンはボディまたはクエリパラメータrefreshTokenで受け付ける。
// 期限切れ・未知のトークンとデバイス不一致はいずれも401を返すが、
// エラーコードで区別される。
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("refreshToken")
	if secret == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalidRequestBodyResponse(w)
			return
		}
		secret = req.RefreshToken
	}

	if secret == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リフレッシュトークンを指定してください"))
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), secret,
		middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpiredOrUnknown):
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
		case errors.Is(err, auth.ErrDeviceMismatch):
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewDeviceMismatchError())
		default:
			handleServiceError(w, err)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, refreshResponse{AccessToken: accessToken})
}

// Logout はログアウトを処理する。
// POST /auth/logout（要認証）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
