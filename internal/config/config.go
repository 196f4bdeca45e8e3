package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the server reads from the environment.
type Config struct {
	Addr         string `env:"AIMRANGE_ADDR" envDefault:":8080"`
	DatabasePath string `env:"AIMRANGE_DB_PATH" envDefault:"aimrange.db"`

	// Identity cap enforced by the persistence worker.
	MaxIdentities int `env:"AIMRANGE_MAX_IDENTITIES" envDefault:"100000"`

	// Anti-cheat thresholds.
	MinReactionTime time.Duration `env:"AIMRANGE_MIN_REACTION_TIME" envDefault:"100ms"`
	MaxPixelsPerMs  float64       `env:"AIMRANGE_MAX_PIXELS_PER_MS" envDefault:"6"`
	JitterVariance  float64       `env:"AIMRANGE_JITTER_VARIANCE" envDefault:"0.001"`

	RoundDuration time.Duration `env:"AIMRANGE_ROUND_DURATION" envDefault:"15s"`
	RankingLimit  int           `env:"AIMRANGE_RANKING_LIMIT" envDefault:"10"`
	TickInterval  time.Duration `env:"AIMRANGE_TICK_INTERVAL" envDefault:"33ms"`

	// Depth of the persistence worker's request queue.
	QueueSize int `env:"AIMRANGE_QUEUE_SIZE" envDefault:"256"`

	// How long shutdown waits for in-flight writes to settle.
	ShutdownGrace time.Duration `env:"AIMRANGE_SHUTDOWN_GRACE" envDefault:"3s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}
