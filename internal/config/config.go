// Package config loads server and client configuration through viper:
// defaults, then an optional YAML file, then TICKWYRM_* environment
// variables, then explicit CLI flags (applied by the caller after Load
// returns, mirroring cobra's flag-overrides-config precedence).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultConfigName = "tickwyrm"

// ServerConfig is the server's full configuration surface (spec §6).
type ServerConfig struct {
	Width         uint32
	Height        uint32
	Port          int
	RoundsPerSec  int
	TurningSpeed  float64
	Seed          uint32
	DashboardAddr string
}

// LoadServer builds a ServerConfig from defaults, an optional config file,
// and TICKWYRM_* environment variables. CLI flags are applied by the
// caller on top of the returned value.
func LoadServer() (ServerConfig, error) {
	v := viper.New()
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/tickwyrm")

	v.SetEnvPrefix("TICKWYRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.width", 800)
	v.SetDefault("server.height", 600)
	v.SetDefault("server.port", 12345)
	v.SetDefault("server.rounds_per_sec", 50)
	v.SetDefault("server.turning_speed", 6.0)
	v.SetDefault("server.seed", uint32(time.Now().Unix()))
	v.SetDefault("server.dashboard_addr", ":8080")

	_ = v.ReadInConfig() // config file is optional; env/defaults suffice

	cfg := ServerConfig{
		Width:         v.GetUint32("server.width"),
		Height:        v.GetUint32("server.height"),
		Port:          v.GetInt("server.port"),
		RoundsPerSec:  v.GetInt("server.rounds_per_sec"),
		TurningSpeed:  v.GetFloat64("server.turning_speed"),
		Seed:          uint32(v.GetUint64("server.seed")),
		DashboardAddr: v.GetString("server.dashboard_addr"),
	}

	if cfg.Width == 0 || cfg.Height == 0 {
		return ServerConfig{}, fmt.Errorf("server.width and server.height must be positive")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return ServerConfig{}, fmt.Errorf("invalid server.port %d", cfg.Port)
	}
	if cfg.RoundsPerSec <= 0 {
		return ServerConfig{}, fmt.Errorf("server.rounds_per_sec must be positive")
	}
	return cfg, nil
}

// ClientConfig is the client's full configuration surface (spec §6).
type ClientConfig struct {
	ServerAddr string
	UIAddr     string
}

// LoadClient builds a ClientConfig from defaults and TICKWYRM_* environment
// variables; player_name is a positional CLI argument and is not sourced
// here, and server/UI addresses given positionally override these values.
func LoadClient() ClientConfig {
	v := viper.New()
	v.SetEnvPrefix("TICKWYRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("client.server_addr", "localhost:12345")
	v.SetDefault("client.ui_addr", "localhost:12346")

	return ClientConfig{
		ServerAddr: v.GetString("client.server_addr"),
		UIAddr:     v.GetString("client.ui_addr"),
	}
}
