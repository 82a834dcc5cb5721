package config

// Package config provides a reusable loader for the indexer's configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/alkanes-indexing/blockcore/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for one indexer process. It mirrors
// the structure of the YAML files under cmd/config.
type Config struct {
	Node struct {
		RPCHost string `mapstructure:"rpc_host" json:"rpc_host"`
		RPCUser string `mapstructure:"rpc_user" json:"rpc_user"`
		RPCPass string `mapstructure:"rpc_pass" json:"rpc_pass"`
		Network string `mapstructure:"network" json:"network"` // mainnet|testnet3|regtest|signet
	} `mapstructure:"node" json:"node"`

	Archive struct {
		Dir string `mapstructure:"dir" json:"dir"`
	} `mapstructure:"archive" json:"archive"`

	Store struct {
		Path string `mapstructure:"path" json:"path"`
	} `mapstructure:"store" json:"store"`

	Index struct {
		Mode                string `mapstructure:"mode" json:"mode"` // auto|rpc_only|blk_only
		NearTipRPCThreshold uint32 `mapstructure:"near_tip_rpc_threshold" json:"near_tip_rpc_threshold"`
		PriceScale          uint64 `mapstructure:"price_scale" json:"price_scale"`
	} `mapstructure:"index" json:"index"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // optional .env in the working directory; missing file is fine

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up whatever godotenv populated into the process env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the INDEXER_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("INDEXER_ENV", ""))
}
