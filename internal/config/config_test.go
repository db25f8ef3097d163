package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MONGO_DB", "HTTP_PORT", "PRESENCE_DEBOUNCE", "LOBBY_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.MongoDB != "keyclue" {
		t.Errorf("MongoDB = %s", cfg.MongoDB)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %s", cfg.HTTPPort)
	}
	if cfg.PresenceDebounce != 2*time.Second {
		t.Errorf("PresenceDebounce = %s, want 2s", cfg.PresenceDebounce)
	}
	if cfg.LobbyTimeout != 10*time.Minute {
		t.Errorf("LobbyTimeout = %s, want 10m", cfg.LobbyTimeout)
	}
}

func TestGetDuration(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"", 2 * time.Second},     // default
		{"1500ms", 1500 * time.Millisecond},
		{"5s", 5 * time.Second},
		{"3", 3 * time.Second},    // bare integers are seconds
		{"bogus", 2 * time.Second},
	}
	for _, c := range cases {
		t.Setenv("PRESENCE_DEBOUNCE", c.value)
		if got := getDuration("PRESENCE_DEBOUNCE", 2*time.Second); got != c.want {
			t.Errorf("getDuration(%q) = %s, want %s", c.value, got, c.want)
		}
	}
}
