package filler

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type OriginConfig struct {
	RpcUrl     string `json:"rpc_url,omitempty" toml:"rpc_url,omitempty" env:"RPC_URL"`
	Settler    string `json:"settler,omitempty" toml:"settler,omitempty" env:"SETTLER"`
	StartBlock uint64 `json:"start_block,omitempty" toml:"start_block,omitempty" env:"START_BLOCK"`
}

type DestinationConfig struct {
	RpcUrl   string `json:"rpc_url,omitempty" toml:"rpc_url,omitempty" env:"RPC_URL"`
	Settler  string `json:"settler,omitempty" toml:"settler,omitempty" env:"SETTLER"`
	GasLimit uint64 `json:"gas_limit,omitempty" toml:"gas_limit,omitempty" env:"GAS_LIMIT"`
}

type ServerConfig struct {
	Addr string `json:"addr,omitempty" toml:"addr,omitempty" env:"ADDR"`
}

type Config struct {
	Origin      OriginConfig      `json:"origin,omitempty" toml:"origin,omitempty" envPrefix:"ORIGIN_"`
	Destination DestinationConfig `json:"destination,omitempty" toml:"destination,omitempty" envPrefix:"DESTINATION_"`
	Server      ServerConfig      `json:"server,omitempty" toml:"server,omitempty" envPrefix:"SERVER_"`

	// only ever read from the environment
	PrivateKey string `json:"-" toml:"-" env:"PRIVATE_KEY"`
}

const ENV_PREFIX = "FILLER_"

// LoadConfig reads the TOML file and applies FILLER_* environment overrides on top.
// A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err = toml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	_ = godotenv.Load()
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: ENV_PREFIX}); err != nil {
		return nil, fmt.Errorf("failed to parse env config: %w", err)
	}
	return cfg, nil
}

func MustLoadConfig(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks what the filler cannot run without. The private key is only
// required when fills are submitted.
func (c *Config) Validate(needSigner bool) error {
	var errs []error
	if c.Origin.RpcUrl == "" {
		errs = append(errs, errors.New("origin.rpc_url is required"))
	}
	if !common.IsHexAddress(c.Origin.Settler) {
		errs = append(errs, fmt.Errorf("origin.settler is not an address: %q", c.Origin.Settler))
	}
	if needSigner {
		if c.Destination.RpcUrl == "" {
			errs = append(errs, errors.New("destination.rpc_url is required"))
		}
		if !common.IsHexAddress(c.Destination.Settler) {
			errs = append(errs, fmt.Errorf("destination.settler is not an address: %q", c.Destination.Settler))
		}
		if c.PrivateKey == "" {
			errs = append(errs, fmt.Errorf("%sPRIVATE_KEY is not set", ENV_PREFIX))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) OriginSettler() common.Address {
	return common.HexToAddress(c.Origin.Settler)
}

func (c *Config) DestinationSettler() common.Address {
	return common.HexToAddress(c.Destination.Settler)
}

// StartBlock is nil when no back-fill is configured.
func (c *Config) StartBlock() *big.Int {
	if c.Origin.StartBlock == 0 {
		return nil
	}
	return new(big.Int).SetUint64(c.Origin.StartBlock)
}
