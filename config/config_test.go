package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "DataDir = \"/var/lib/masterbunnid\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8647" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.EngineAddress != defaultEngineAddress {
		t.Fatalf("unexpected engine address %q", cfg.EngineAddress)
	}
	if cfg.DataDir != "/var/lib/masterbunnid" {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "ListenAddres = \":9999\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestLoadRejectsBadEngineAddress(t *testing.T) {
	for _, body := range []string{
		"EngineAddress = \"not-an-address\"\n",
		"EngineAddress = \"0x0000000000000000000000000000000000000000\"\n",
	} {
		path := writeConfig(t, body)
		if _, err := Load(path); err == nil {
			t.Fatalf("expected rejection for %q", body)
		}
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8647" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not created: %v", err)
	}
	// Loading the freshly written file round-trips.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.EngineAddress != cfg.EngineAddress {
		t.Fatalf("round-trip mismatch: %q vs %q", again.EngineAddress, cfg.EngineAddress)
	}
}

func TestEngineAddressParsed(t *testing.T) {
	path := writeConfig(t, "EngineAddress = \"0x00000000000000000000000000000000B0000001\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine() == (common.Address{}) {
		t.Fatal("engine address parsed to zero")
	}
}
