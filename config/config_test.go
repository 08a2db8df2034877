package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("EVENTS_CACHE_TTL", "")
	t.Setenv("MAIL_SEND_ENABLED", "")

	cfg := Load()
	if cfg.Port != "3000" {
		t.Fatalf("expected default port 3000, got %q", cfg.Port)
	}
	if cfg.EventsCacheTTL != 30*time.Second {
		t.Fatalf("expected default cache ttl 30s, got %v", cfg.EventsCacheTTL)
	}
	if !cfg.MailSendEnabled {
		t.Fatalf("expected mail sending enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("COOKIE_SECURE", "true")

	cfg := Load()
	if cfg.Port != "8081" {
		t.Fatalf("expected port 8081, got %q", cfg.Port)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("expected 25 max conns, got %d", cfg.DBMaxConns)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("expected access ttl 15m, got %v", cfg.AccessTTL)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected secure cookies")
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("JWT_REFRESH_TTL", "forever")
	t.Setenv("HTTP_LOG_ENABLED", "sometimes")

	cfg := Load()
	if cfg.DBMaxConns != 10 {
		t.Fatalf("expected fallback 10, got %d", cfg.DBMaxConns)
	}
	if cfg.RefreshTTL != 168*time.Hour {
		t.Fatalf("expected fallback refresh ttl, got %v", cfg.RefreshTTL)
	}
	if cfg.HTTPLogEnabled {
		t.Fatalf("expected fallback false for http log")
	}
}

func TestListHelpers(t *testing.T) {
	cfg := &Config{
		CORSAllowedOrigins: " http://a.test, ,http://b.test ",
		ElasticsearchAddrs: "",
		TrustedProxies:     "10.0.0.0/8,127.0.0.1",
	}
	if got, want := cfg.CORSOrigins(), []string{"http://a.test", "http://b.test"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("CORSOrigins = %v, want %v", got, want)
	}
	if got := cfg.ESAddrs(); len(got) != 0 {
		t.Fatalf("expected no ES addrs, got %v", got)
	}
	if got, want := cfg.TrustedProxyList(), []string{"10.0.0.0/8", "127.0.0.1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("TrustedProxyList = %v, want %v", got, want)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5432", DBName: "eventhub", DBSSLMode: "disable"}
	want := "postgres://u:p@db:5432/eventhub?sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("PostgresDSN = %q, want %q", got, want)
	}
}

func TestMailBrand(t *testing.T) {
	cfg := &Config{AppName: "eventhub", CompanyName: "Event Master", TicketsURL: "http://t.test"}
	b := cfg.MailBrand()
	if b.AppName != "eventhub" || b.CompanyName != "Event Master" || b.TicketsURL != "http://t.test" {
		t.Fatalf("unexpected brand %+v", b)
	}
}
