package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.JWTIssuer != "authcore" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "authcore")
	}
	if cfg.JWTAudience != "authcore-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "authcore-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "168h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "168h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.LockoutThreshold != 5 {
		t.Errorf("LockoutThreshold = %d, want 5", cfg.LockoutThreshold)
	}
	if cfg.LockDuration() != 30*time.Minute {
		t.Errorf("LockDuration = %v, want 30m", cfg.LockDuration())
	}
	if cfg.ReuseSentinelTTL() != 5*time.Minute {
		t.Errorf("ReuseSentinelTTL = %v, want 5m", cfg.ReuseSentinelTTL())
	}
	if cfg.SweepInterval() != 10*time.Minute {
		t.Errorf("SweepInterval = %v, want 10m", cfg.SweepInterval())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("LOCKOUT_THRESHOLD", "3")
	os.Setenv("LOCKOUT_DURATION", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.LockoutThreshold != 3 {
		t.Errorf("LockoutThreshold = %d, want 3", cfg.LockoutThreshold)
	}
	if cfg.LockDuration() != time.Hour {
		t.Errorf("LockDuration = %v, want 1h", cfg.LockDuration())
	}
}

func TestLoad_BcryptCostRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to the default
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestSigningKeySpecs(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SIGNING_KEYS", "k2:secret-two, k1:secret-one")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	specs, err := cfg.SigningKeySpecs()
	if err != nil {
		t.Fatalf("SigningKeySpecs: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	// The first entry is the active key.
	if specs[0].ID != "k2" || specs[0].Secret != "secret-two" {
		t.Errorf("specs[0] = %+v, want k2", specs[0])
	}
	if specs[1].ID != "k1" || specs[1].Secret != "secret-one" {
		t.Errorf("specs[1] = %+v, want k1", specs[1])
	}
}

func TestSigningKeySpecs_Empty(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	specs, err := cfg.SigningKeySpecs()
	if err != nil {
		t.Fatalf("SigningKeySpecs: %v", err)
	}
	if specs != nil {
		t.Errorf("specs = %+v, want nil", specs)
	}
}

func TestSigningKeySpecs_Malformed(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SIGNING_KEYS", "missing-secret")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a kid without a secret")
	}
}

func TestAccessTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "invalid", 15 * time.Minute},
		{"zero", "0", 15 * time.Minute},
		{"negative", "-5m", 15 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("JWT_ACCESS_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefreshTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "336h", 14 * 24 * time.Hour},
		{"invalid", "invalid", 168 * time.Hour},
		{"zero", "0", 168 * time.Hour},
		{"negative", "-1h", 168 * time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("JWT_REFRESH_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.RefreshTTL(); got != tc.want {
				t.Errorf("RefreshTTL = %v, want %v", got, tc.want)
			}
		})
	}
}
