package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func staffClaims(expiry time.Time) Claims {
	branchID := "branch-1"
	return Claims{
		UserID:   "u1",
		Role:     RoleWaiter,
		BranchID: &branchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
}

func TestParseBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "standard", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing scheme", header: "abc.def.ghi", want: ""},
		{name: "empty", header: "", want: ""},
		{name: "wrong scheme", header: "Basic abc", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseBearerToken(tc.header); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestVerifyAccessToken(t *testing.T) {
	token := mintToken(t, testSecret, staffClaims(time.Now().Add(time.Hour)))

	claims, err := VerifyAccessToken(token, testSecret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != RoleWaiter {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.BranchID == nil || *claims.BranchID != "branch-1" {
		t.Fatal("expected branch claim")
	}
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	valid := staffClaims(time.Now().Add(time.Hour))

	cases := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "wrong secret", token: mintToken(t, "other-secret", valid)},
		{name: "expired", token: mintToken(t, testSecret, staffClaims(time.Now().Add(-time.Minute)))},
		{name: "garbage", token: "not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := VerifyAccessToken(tc.token, testSecret); err == nil {
				t.Fatal("expected verification to fail")
			}
		})
	}
}

func TestVerifyAccessTokenRequiresHS256(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, staffClaims(time.Now().Add(time.Hour)))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyAccessToken(signed, testSecret); err == nil {
		t.Fatal("expected alg none token to be rejected")
	}
}

func TestIsStaff(t *testing.T) {
	for _, role := range []StaffRole{RoleAdmin, RoleOwner, RoleManager, RoleWaiter, RoleReceptionist} {
		if !IsStaff(role) {
			t.Fatalf("expected %s to be staff", role)
		}
	}
	if IsStaff(StaffRole("CUSTOMER")) {
		t.Fatal("unknown role must not be staff")
	}
}
