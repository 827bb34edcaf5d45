package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr == "" {
		t.Error("HTTPAddr default missing")
	}
	if cfg.JWTIssuer == "" || cfg.JWTAudience == "" {
		t.Error("JWT issuer/audience defaults missing")
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.SessionTTL() != 720*time.Hour {
		t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL())
	}
	if cfg.SweepInterval() != time.Hour {
		t.Errorf("SweepInterval = %v, want 1h", cfg.SweepInterval())
	}
	if cfg.AuditKafkaTopic == "" || cfg.KafkaGroupID == "" {
		t.Error("Kafka defaults missing")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("SESSION_TTL", "48h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("AccessTTL = %v, want 5m", cfg.AccessTTL())
	}
	if cfg.SessionTTL() != 48*time.Hour {
		t.Errorf("SessionTTL = %v, want 48h", cfg.SessionTTL())
	}
	brokers := cfg.KafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", brokers)
	}
}

func TestConfig_InvalidDurationsFallBack(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "garbage", SessionTTLRaw: "-1h", SweepIntervalRaw: "nope"}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v", cfg.AccessTTL())
	}
	if cfg.SessionTTL() != 720*time.Hour {
		t.Errorf("SessionTTL fallback = %v", cfg.SessionTTL())
	}
	if cfg.SweepInterval() != 0 {
		t.Errorf("SweepInterval fallback = %v, want 0 (disabled)", cfg.SweepInterval())
	}
}

func TestConfig_SecureCookies(t *testing.T) {
	cases := []struct {
		env  string
		want bool
	}{
		{"", false},
		{"development", false},
		{"staging", true},
		{"production", true},
	}
	for _, tc := range cases {
		cfg := &Config{Env: tc.env}
		if got := cfg.SecureCookies(); got != tc.want {
			t.Errorf("SecureCookies(%q) = %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestConfig_KafkaBrokersListEmpty(t *testing.T) {
	cfg := &Config{}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Errorf("empty brokers = %v, want nil", got)
	}
}
