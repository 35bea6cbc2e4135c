package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	// RPCAddress may be empty to disable the lobby RPC listener.
	RPCAddress string        `mapstructure:"rpc_address"`
	Heartbeat  time.Duration `mapstructure:"heartbeat"`
}

// GameConfig holds room and board generation limits.
type GameConfig struct {
	MaxPlayers        int           `mapstructure:"max_players"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	GenerationBudget  time.Duration `mapstructure:"generation_budget"`
	GenerationWorkers int           `mapstructure:"generation_workers"`
}

type DatabaseConfig struct {
	// Driver is one of "gorm", "pq" or "memory".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// RedisConfig configures the room directory. An empty Addr keeps the
// directory in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.heartbeat", 30*time.Second)
	v.SetDefault("game.max_players", 32)
	v.SetDefault("game.idle_timeout", 10*time.Minute)
	v.SetDefault("game.sweep_interval", 30*time.Second)
	v.SetDefault("game.generation_budget", 2*time.Second)
	v.SetDefault("game.generation_workers", 2)
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.port", 5432)
}

// LoadConfig reads config.yaml from path. A missing file is not an error:
// defaults and SWEEP_* environment variables still apply.
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("sweep")
	v.AutomaticEnv()
	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}
