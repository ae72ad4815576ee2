package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string `yaml:"log-level" env:"TICTACTOE_LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log-format" env:"TICTACTOE_LOG_FORMAT" env-default:"pretty"`
	HTTPPort  int    `yaml:"http-port" env:"TICTACTOE_HTTP_PORT" env-default:"9090"`
	Ledger    Ledger `yaml:"ledger"`
	Player    Player `yaml:"player"`
	Sync      Sync   `yaml:"sync"`
	Redis     Redis  `yaml:"redis"`
}

type Ledger struct {
	RPCURL         string        `yaml:"rpc-url" env:"TICTACTOE_RPC_URL" env-default:"https://rpc.testnet.sui.io:443"`
	PackageID      string        `yaml:"package-id" env:"TICTACTOE_PACKAGE_ID"`
	Module         string        `yaml:"module" env:"TICTACTOE_MODULE" env-default:"multisig_tic_tac_toe"`
	GasBudget      uint64        `yaml:"gas-budget" env:"TICTACTOE_GAS_BUDGET" env-default:"10000000"`
	RequestTimeout time.Duration `yaml:"request-timeout" env:"TICTACTOE_REQUEST_TIMEOUT" env-default:"15s"`
}

type Player struct {
	PrivateKey        string `yaml:"private-key" env:"TICTACTOE_PRIVATE_KEY"`
	OpponentPublicKey string `yaml:"opponent-public-key" env:"TICTACTOE_OPPONENT_KEY"`
}

type Sync struct {
	Interval time.Duration `yaml:"interval" env:"TICTACTOE_SYNC_INTERVAL" env-default:"3s"`
}

type Redis struct {
	Enabled     bool          `yaml:"enabled" env:"TICTACTOE_REDIS_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"TICTACTOE_REDIS_HOST" env-default:"localhost"`
	Port        int           `yaml:"port" env:"TICTACTOE_REDIS_PORT" env-default:"6379"`
	Password    string        `yaml:"password" env:"TICTACTOE_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"TICTACTOE_REDIS_DB" env-default:"0"`
	SnapshotTTL time.Duration `yaml:"snapshot-ttl" env:"TICTACTOE_REDIS_SNAPSHOT_TTL" env-default:"10m"`
}

// Load reads path with env overrides. Without a file the environment alone is used.
func Load(path string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read config from env: %w", err)
		}

		return config, nil
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}
