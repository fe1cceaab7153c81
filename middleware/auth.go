package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"timesheet/directory"
	"timesheet/models"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserContextKey contextKey = "principal"

type Claims struct {
	EmployeeCode string        `json:"employee_code"`
	Roles        []models.Role `json:"roles"`
	jwt.RegisteredClaims
}

var jwtSecret []byte

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

func GenerateToken(p *models.Principal, expiration time.Duration) (string, error) {
	claims := &Claims{
		EmployeeCode: p.EmployeeCode,
		Roles:        p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.EmployeeCode,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.EmployeeCode == "" {
			return nil, errors.New("token has no employee code")
		}
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthMiddleware accepts a bearer token and stores the caller in the
// request context. The caller's employee code becomes the audit actor and
// the raw token is forwarded to the identity service.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		p := &models.Principal{EmployeeCode: claims.EmployeeCode, Roles: claims.Roles}
		ctx := context.WithValue(r.Context(), UserContextKey, p)
		ctx = models.WithActor(ctx, p.EmployeeCode)
		ctx = directory.WithToken(ctx, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetUserFromContext(r.Context())
			if p == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			for _, role := range roles {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

func GetUserFromContext(ctx context.Context) *models.Principal {
	p, ok := ctx.Value(UserContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return p
}

// WithPrincipal is used by handler tests to skip token handling.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, p)
	return models.WithActor(ctx, p.EmployeeCode)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": http.StatusText(status), "message": message})
}
