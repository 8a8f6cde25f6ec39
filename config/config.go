package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	LedgerEth    = "eth"
	LedgerBadger = "badger"

	StoreLocal   = "localfs"
	StorePinning = "pinning"
)

type Config struct {
	APIConf  APIConf  `yaml:"APIConf"`
	Ledger   Ledger   `yaml:"Ledger"`
	Store    Store    `yaml:"Store"`
	Renderer Renderer `yaml:"Renderer"`
	Bulk     Bulk     `yaml:"Bulk"`
}

type APIConf struct {
	Port string `yaml:"Port" default:"8081"`
	Host string `yaml:"Host" default:"0.0.0.0"`
}

type Ledger struct {
	Backend         string         `yaml:"Backend" default:"badger"`
	Node            string         `yaml:"Node"`
	ContractAddress common.Address `yaml:"ContractAddress"`
	ChainTimeout    time.Duration  `yaml:"ChainTimeout" default:"2m"`
	BadgerDir       string         `yaml:"BadgerDir" default:"./ledger"`
}

type Store struct {
	Backend    string        `yaml:"Backend" default:"localfs"`
	Dir        string        `yaml:"Dir" default:"./certificates"`
	PinURL     string        `yaml:"PinURL"`
	GatewayURL string        `yaml:"GatewayURL"`
	Timeout    time.Duration `yaml:"Timeout" default:"30s"`
	MaxRetries uint          `yaml:"MaxRetries" default:"3"`
}

type Renderer struct {
	LogoPath string `yaml:"LogoPath"`
}

type Bulk struct {
	Workers int `yaml:"Workers" default:"4"`
}

// Load reads the YAML file at path. Unset values take their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, cfg.Validate()
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, cfg.Validate()
}

func Default() Config {
	return Config{
		APIConf: APIConf{Port: "8081", Host: "0.0.0.0"},
		Ledger:  Ledger{Backend: LedgerBadger, ChainTimeout: 2 * time.Minute, BadgerDir: "./ledger"},
		Store:   Store{Backend: StoreLocal, Dir: "./certificates", Timeout: 30 * time.Second, MaxRetries: 3},
		Bulk:    Bulk{Workers: 4},
	}
}

func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case LedgerBadger:
		if c.Ledger.BadgerDir == "" {
			return fmt.Errorf("ledger: BadgerDir is required for the %s backend", LedgerBadger)
		}
	case LedgerEth:
		if c.Ledger.Node == "" {
			return fmt.Errorf("ledger: Node is required for the %s backend", LedgerEth)
		}
		if c.Ledger.ContractAddress == (common.Address{}) {
			return fmt.Errorf("ledger: ContractAddress is required for the %s backend", LedgerEth)
		}
	default:
		return fmt.Errorf("ledger: unknown backend %q", c.Ledger.Backend)
	}

	switch c.Store.Backend {
	case StoreLocal:
		if c.Store.Dir == "" {
			return fmt.Errorf("store: Dir is required for the %s backend", StoreLocal)
		}
	case StorePinning:
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}

	if c.Bulk.Workers < 1 {
		return fmt.Errorf("bulk: Workers must be positive, got %d", c.Bulk.Workers)
	}
	return nil
}
