package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LONDA_FIREBASE_PROJECT_ID", "londa-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Matching.RadiusKm != 5.0 || cfg.Matching.NotifyLimit != 20 || cfg.Matching.GeoIndex != "scan" {
		t.Errorf("unexpected matching config: %+v", cfg.Matching)
	}
	if cfg.Ride.TTL != 10*time.Minute {
		t.Errorf("Ride.TTL = %v", cfg.Ride.TTL)
	}
	if cfg.Fare.Default != 13.00 || cfg.Fare.Currency != "NAD" {
		t.Errorf("unexpected fare config: %+v", cfg.Fare)
	}
	if cfg.Auth.OTPAcceptAny {
		t.Error("accept-any OTP must be opted into")
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LONDA_FIREBASE_PROJECT_ID", "londa-test")
	t.Setenv("LONDA_MATCH_RADIUS_KM", "7.5")
	t.Setenv("LONDA_RIDE_TTL", "2m")
	t.Setenv("LONDA_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LONDA_GEO_INDEX", "geohash")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matching.RadiusKm != 7.5 {
		t.Errorf("RadiusKm = %v", cfg.Matching.RadiusKm)
	}
	if cfg.Ride.TTL != 2*time.Minute {
		t.Errorf("TTL = %v", cfg.Ride.TTL)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Matching.GeoIndex != "geohash" {
		t.Errorf("GeoIndex = %q", cfg.Matching.GeoIndex)
	}
}

func TestLoad_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("LONDA_FIREBASE_PROJECT_ID", "londa-test")
	t.Setenv("LONDA_MATCH_NOTIFY_LIMIT", "many")
	t.Setenv("LONDA_RIDE_TTL", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"LONDA_MATCH_NOTIFY_LIMIT", "LONDA_RIDE_TTL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoad_RejectsDevShortcutsInProduction(t *testing.T) {
	t.Setenv("LONDA_FIREBASE_PROJECT_ID", "londa-test")
	t.Setenv("LONDA_ENV", "production")
	t.Setenv("LONDA_AUTH_ALLOW_CUSTOM_TOKENS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_ProductionDisablesAcceptAnyByDefault(t *testing.T) {
	t.Setenv("LONDA_FIREBASE_PROJECT_ID", "londa-test")
	t.Setenv("LONDA_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.OTPAcceptAny {
		t.Error("accept-any OTP must default off in production")
	}
}

func TestLoad_AcceptAnyIsOptIn(t *testing.T) {
	tests := []struct {
		name string
		env  string
		flag string
		want bool
	}{
		{"env unset", "", "", false},
		{"development", "development", "", false},
		{"development opted in", "development", "true", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LONDA_FIREBASE_PROJECT_ID", "londa-test")
			t.Setenv("LONDA_ENV", tt.env)
			t.Setenv("LONDA_OTP_ACCEPT_ANY", tt.flag)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Auth.OTPAcceptAny != tt.want {
				t.Errorf("OTPAcceptAny = %v, want %v", cfg.Auth.OTPAcceptAny, tt.want)
			}
		})
	}
}

func TestLoad_RequiresProjectID(t *testing.T) {
	t.Setenv("LONDA_FIREBASE_PROJECT_ID", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing project id")
	}
}
