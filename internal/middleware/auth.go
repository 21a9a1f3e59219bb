package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"dinetrack-ops-service/internal/auth"
)

type contextKey string

const authContextKey contextKey = "authContext"

type AuthContext struct {
	UserID   string
	Role     auth.StaffRole
	BranchID string
	Name     string
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}

// StaffAuth verifies the bearer token minted by the external auth service and
// requires a staff role plus a branch claim. The branch id on the context is
// the mandatory filter every handler applies.
func StaffAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			if !auth.IsStaff(claims.Role) {
				writeAuthError(w, http.StatusForbidden, "Staff access required")
				return
			}

			if claims.BranchID == nil || *claims.BranchID == "" {
				writeAuthError(w, http.StatusUnauthorized, "Branch not found")
				return
			}

			name := ""
			if claims.Name != nil {
				name = *claims.Name
			}

			authCtx := &AuthContext{
				UserID:   claims.UserID,
				Role:     claims.Role,
				BranchID: *claims.BranchID,
				Name:     name,
			}

			ctx := WithAuthContext(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
