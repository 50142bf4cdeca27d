package logger

import (
	"testing"

	"github.com/sifan077/PowerQR/config"
)

func TestFromApp(t *testing.T) {
	dev := FromApp(config.AppConfig{Env: "development", LogLevel: "debug"})
	if !dev.Development || dev.Encoding != "console" || dev.Level != "debug" {
		t.Fatalf("unexpected development config: %+v", dev)
	}

	prod := FromApp(config.AppConfig{Env: "production"})
	if prod.Development || prod.Encoding != "json" {
		t.Fatalf("unexpected production config: %+v", prod)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestL_DefaultsToNop(t *testing.T) {
	if L() == nil {
		t.Fatal("expected non-nil logger")
	}
}
