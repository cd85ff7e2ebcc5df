package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load([]byte(`
Listen = "0.0.0.0:9000"
MailboxSize = 7
HelloTimeoutSec = 3
LogLevel = "debug"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	sc := cfg.Server()
	if sc.MailboxSize != 7 || sc.HelloTimeout != 3*time.Second {
		t.Errorf("server config = %+v", sc)
	}
	if cfg.Level().String() != "debug" {
		t.Errorf("Level = %v", cfg.Level())
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen == "" || cfg.MailboxSize == 0 || cfg.LogLevel != "info" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if *Default() != *cfg {
		t.Errorf("Default differs from Load(nil)")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load([]byte(`Listne = "0.0.0.0:9000"`))
	if err == nil || !strings.Contains(err.Error(), "undecoded") {
		t.Fatalf("typoed key accepted: %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load([]byte(`LogLevel = "shouting"`)); err == nil {
		t.Fatal("bad log level accepted")
	}
	if _, err := Load([]byte(`MailboxSize = -1`)); err == nil {
		t.Fatal("negative mailbox accepted")
	}
}
