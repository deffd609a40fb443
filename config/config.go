package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

const defaultEngineAddress = "0x00000000000000000000000000000000b0000001"

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	EngineAddress string `toml:"EngineAddress"`
	Environment   string `toml:"Environment"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Unknown keys are rejected so typos surface at startup.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %q", path, undecoded[0].String())
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Engine returns the engine's unlocker identity as an address.
func (c *Config) Engine() common.Address {
	return common.HexToAddress(c.EngineAddress)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8647"
	}
	if strings.TrimSpace(cfg.EngineAddress) == "" {
		cfg.EngineAddress = defaultEngineAddress
	}
}

func validate(cfg *Config) error {
	addr := strings.TrimSpace(cfg.EngineAddress)
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("config: EngineAddress %q is not a valid address", cfg.EngineAddress)
	}
	if common.HexToAddress(addr) == (common.Address{}) {
		return fmt.Errorf("config: EngineAddress must not be the zero address")
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
