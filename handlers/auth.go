package handlers

import (
	"errors"
	"net/http"
	"time"

	"timesheet/config"
	"timesheet/middleware"
	"timesheet/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	config *config.Config
	db     *gorm.DB
	log    *zap.Logger
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		log:    log,
	}
}

type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResponse struct {
	AccessToken  string        `json:"accessToken"`
	TokenType    string        `json:"tokenType"`
	ExpiresIn    int64         `json:"expiresIn"`
	EmployeeCode string        `json:"employeeCode"`
	Roles        []models.Role `json:"roles"`
}

type principalResponse struct {
	EmployeeCode string        `json:"employeeCode"`
	Roles        []models.Role `json:"roles"`
}

func invalidCredentials(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"})
}

// Token exchanges a service account's client credentials for a bearer
// token carrying its employee code and roles.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		badRequest(w, "clientId and clientSecret are required")
		return
	}

	db := h.db.WithContext(r.Context())
	var account models.ServiceAccount
	if err := db.Where("client_id = ?", req.ClientID).First(&account).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, h.log, err)
			return
		}
		invalidCredentials(w)
		return
	}

	if !account.Active {
		invalidCredentials(w)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.SecretHash), []byte(req.ClientSecret)); err != nil {
		h.log.Warn("service account authentication failed", zap.String("client_id", req.ClientID))
		invalidCredentials(w)
		return
	}

	p := &models.Principal{EmployeeCode: account.EmployeeCode, Roles: account.RoleList()}
	token, err := middleware.GenerateToken(p, h.config.JWTExpiration)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	now := time.Now().UTC()
	if err := db.Model(&account).Update("last_used_at", now).Error; err != nil {
		h.log.Warn("failed to record service account use", zap.String("client_id", req.ClientID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.config.JWTExpiration.Seconds()),
		EmployeeCode: p.EmployeeCode,
		Roles:        p.Roles,
	})
}

// Me echoes the authenticated caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetUserFromContext(r.Context())
	if p == nil {
		writeError(w, h.log, errUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, principalResponse{EmployeeCode: p.EmployeeCode, Roles: p.Roles})
}
