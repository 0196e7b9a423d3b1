// internal/api/handlers/auth.go
package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/api/httpx"
	"github.com/baharkarakas/fintech-transfers/internal/api/validate"
	"github.com/baharkarakas/fintech-transfers/internal/auth"
	"github.com/baharkarakas/fintech-transfers/internal/middleware"
	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/baharkarakas/fintech-transfers/internal/services"
)

const registeredMessage = "A verification email has been sent to your provided email address"

type AuthHandler struct {
	Users *services.UserService
}

func NewAuthHandler(us *services.UserService) *AuthHandler {
	return &AuthHandler{Users: us}
}

type registerReq struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,max=255,email"`
	FullName string `json:"full_name" validate:"required,min=2,max=100,full_name"`
	Password string `json:"password" validate:"required,min=12,max=128,password_policy"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	err := h.Users.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": registeredMessage})
}

type loginReq struct {
	Email    string `json:"email" validate:"required,max=255,email"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	KYCStatus string `json:"kyc_status"`
}

func viewUser(u models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, KYCStatus: u.KYCStatus}
}

type tokenResp struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"` // seconds until the access token expires
	User         *userView `json:"user,omitempty"`
}

func newTokenResp(p auth.TokenPair) tokenResp {
	return tokenResp{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    int64(time.Until(p.AccessExpiresAt).Truncate(time.Second).Seconds()),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, pair, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := newTokenResp(pair)
	v := viewUser(u)
	resp.User = &v
	httpx.WriteJSON(w, http.StatusOK, resp)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	pair, err := h.Users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newTokenResp(pair))
}

func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Current(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewUser(u))
}
