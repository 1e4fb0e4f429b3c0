// Package config loads board settings from defaults, an optional toml file,
// a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"CanvasBoard/internal/board"
	"CanvasBoard/internal/net"
	"CanvasBoard/internal/raster"
	"CanvasBoard/internal/state"
)

const (
	DefaultRoom   = "default"
	DefaultWidth  = 800
	DefaultHeight = 600
)

var ErrInvalidConfig = errors.New("invalid config")

var validate = state.NewValidator()

type Config struct {
	// Endpoint is the relay websocket URL. Empty means discover one on the
	// local network.
	Endpoint string `toml:"endpoint" env:"CANVASBOARD_ENDPOINT" validate:"omitempty,url"`
	Room     string `toml:"room" env:"CANVASBOARD_ROOM" validate:"required"`

	Width      int    `toml:"width" env:"CANVASBOARD_WIDTH" validate:"gt=0"`
	Height     int    `toml:"height" env:"CANVASBOARD_HEIGHT" validate:"gt=0"`
	Background string `toml:"background" env:"CANVASBOARD_BACKGROUND" validate:"required,drawcolor"`
	Color      string `toml:"color" env:"CANVASBOARD_COLOR" validate:"required,drawcolor"`

	LineWidth    float64 `toml:"line_width" env:"CANVASBOARD_LINE_WIDTH" validate:"gte=1,lte=50"`
	EraserWidth  float64 `toml:"eraser_width" env:"CANVASBOARD_ERASER_WIDTH" validate:"gt=0"`
	HistoryLimit int     `toml:"history_limit" env:"CANVASBOARD_HISTORY_LIMIT" validate:"gt=0"`

	ReconnectInterval    time.Duration `toml:"reconnect_interval" env:"CANVASBOARD_RECONNECT_INTERVAL" validate:"gt=0"`
	MaxReconnectAttempts int           `toml:"max_reconnect_attempts" env:"CANVASBOARD_MAX_RECONNECT_ATTEMPTS" validate:"gt=0"`
	DialTimeout          time.Duration `toml:"dial_timeout" env:"CANVASBOARD_DIAL_TIMEOUT" validate:"gt=0"`
	WriteTimeout         time.Duration `toml:"write_timeout" env:"CANVASBOARD_WRITE_TIMEOUT" validate:"gt=0"`
	DiscoveryTimeout     time.Duration `toml:"discovery_timeout" env:"CANVASBOARD_DISCOVERY_TIMEOUT" validate:"gt=0"`

	LogLevel   string `toml:"log_level" env:"CANVASBOARD_LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	PrettyLogs bool   `toml:"pretty_logs" env:"CANVASBOARD_PRETTY_LOGS"`
}

func Default() Config {
	return Config{
		Endpoint:             net.DefaultEndpoint,
		Room:                 DefaultRoom,
		Width:                DefaultWidth,
		Height:               DefaultHeight,
		Background:           raster.DefaultBackground,
		Color:                board.DefaultColor,
		LineWidth:            board.DefaultLineWidth,
		EraserWidth:          raster.DefaultEraserWidth,
		HistoryLimit:         state.DefaultHistoryLimit,
		ReconnectInterval:    net.DefaultReconnectInterval,
		MaxReconnectAttempts: net.DefaultMaxReconnectAttempts,
		DialTimeout:          net.DefaultDialTimeout,
		WriteTimeout:         net.DefaultWriteTimeout,
		DiscoveryTimeout:     net.DefaultDiscoveryTimeout,
		LogLevel:             "info",
	}
}

// Load layers path (if set) and the environment over the defaults. A missing
// .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ChannelOptions maps the connection settings onto the sync channel.
func (c Config) ChannelOptions(endpoint string) net.Options {
	return net.Options{
		Endpoint:             endpoint,
		ReconnectInterval:    c.ReconnectInterval,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		DialTimeout:          c.DialTimeout,
		WriteTimeout:         c.WriteTimeout,
	}
}

// BoardOptions maps the drawing settings onto a board session.
func (c Config) BoardOptions() board.Options {
	return board.Options{
		HistoryLimit: c.HistoryLimit,
		EraserWidth:  c.EraserWidth,
		Color:        c.Color,
		LineWidth:    c.LineWidth,
	}
}
