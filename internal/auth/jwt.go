package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type StaffRole string

const (
	RoleAdmin        StaffRole = "ADMIN"
	RoleOwner        StaffRole = "OWNER"
	RoleManager      StaffRole = "BRANCH_MANAGER"
	RoleWaiter       StaffRole = "WAITER"
	RoleReceptionist StaffRole = "RECEPTIONIST"
)

// Claims carries the identity minted by the external auth service. The ops
// service only verifies tokens; it never issues them.
type Claims struct {
	UserID   string    `json:"userId"`
	Role     StaffRole `json:"role"`
	BranchID *string   `json:"branchId,omitempty"`
	Name     *string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func VerifyAccessToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

// IsStaff reports whether the role is one the ops dashboard serves.
func IsStaff(role StaffRole) bool {
	switch role {
	case RoleAdmin, RoleOwner, RoleManager, RoleWaiter, RoleReceptionist:
		return true
	}
	return false
}
