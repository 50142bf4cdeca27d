package postgres

import (
	"testing"
	"time"

	"github.com/sifan077/PowerQR/config"
)

func TestConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PostgresConfig
		want string
	}{
		{
			name: "defaults",
			cfg:  config.PostgresConfig{User: "app", Database: "powerqr"},
			want: "postgres://app@localhost:5432/powerqr?sslmode=disable",
		},
		{
			name: "escapes password",
			cfg: config.PostgresConfig{
				Host: "db", Port: 6543, User: "app", Password: "p@ss/word", Database: "powerqr", SSLMode: "require",
			},
			want: "postgres://app:p%40ss%2Fword@db:6543/powerqr?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConnString(tt.cfg); got != tt.want {
				t.Fatalf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDurationOr(t *testing.T) {
	if got := durationOr("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	for _, raw := range []string{"", "soon", "-1s"} {
		if got := durationOr(raw, time.Minute); got != time.Minute {
			t.Fatalf("durationOr(%q) = %s, want fallback", raw, got)
		}
	}
}
