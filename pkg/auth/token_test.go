package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/introcar/introcar-backend/pkg/config"
)

func testConfig() config.AdminJWTConfig {
	return config.AdminJWTConfig{Secret: "secret", Issuer: "introcar-admin", ExpirationMinutes: 30}
}

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()

	token, err := MintAdminToken(cfg, now, "admin-7", " Parts@IntroCar.com ", RoleEditor)
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}
	if claims.Subject != "admin-7" || claims.Role != RoleEditor {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Email != "parts@introcar.com" {
		t.Fatalf("email not normalized: %q", claims.Email)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
	if !claims.ExpiresAt.Time.After(now.Add(29 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestParseAdminTokenRejects(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()

	expired, err := MintAdminToken(cfg, now.Add(-2*time.Hour), "admin-1", "", RoleAdmin)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"
	foreign, err := MintAdminToken(otherIssuer, now, "admin-1", "", RoleAdmin)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	badRole, err := jwt.NewWithClaims(jwtSigningMethod, AdminClaims{
		Role: Role("owner"),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	good, err := MintAdminToken(cfg, now, "admin-1", "", RoleAdmin)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	tampered := good[:strings.LastIndex(good, ".")+1] + "c2lnbmF0dXJl"

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong issuer": foreign,
		"unknown role": badRole,
		"tampered":     tampered,
		"garbage":      "not-a-jwt",
	} {
		if _, err := ParseAdminToken(cfg, token); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestMintAdminTokenValidatesInput(t *testing.T) {
	cfg := testConfig()
	if _, err := MintAdminToken(config.AdminJWTConfig{}, time.Now(), "a", "", RoleAdmin); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := MintAdminToken(cfg, time.Now(), "", "", RoleAdmin); err == nil {
		t.Fatalf("expected missing subject error")
	}
	if _, err := MintAdminToken(cfg, time.Now(), "a", "", Role("root")); err == nil {
		t.Fatalf("expected invalid role error")
	}
}

func TestRoleAllows(t *testing.T) {
	if !RoleAdmin.Allows(RoleEditor) || !RoleEditor.Allows(RoleEditor) {
		t.Fatalf("expected role to be satisfied")
	}
	if RoleEditor.Allows(RoleAdmin) {
		t.Fatalf("editor must not satisfy admin")
	}
}
