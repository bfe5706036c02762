package util

import (
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Config holds runtime settings. Environment first, flags override.
type Config struct {
	SeedText   string `env:"GLASSBRIDGE_SEED"`
	DSN        string `env:"DATABASE_URL"`
	TotalPairs int    `env:"GLASSBRIDGE_PAIRS" envDefault:"8"`
	StepLog    string `env:"GLASSBRIDGE_STEP_LOG"`
	ScriptPath string `env:"GLASSBRIDGE_SCRIPT"`
	ListenAddr string `env:"GLASSBRIDGE_LISTEN" envDefault:"127.0.0.1:8088"`
	Muted      bool   `env:"GLASSBRIDGE_MUTED"`

	SpeechURL    string `env:"LEMONFOX_URL" envDefault:"https://api.lemonfox.ai/v1/audio/speech"`
	SpeechAPIKey string `env:"LEMONFOX_API_KEY"`
	SpeakCommand string `env:"GLASSBRIDGE_SPEAK_COMMAND" envDefault:"espeak"`
	PlayCommand  string `env:"GLASSBRIDGE_PLAY_COMMAND" envDefault:"mpg123"`

	LogLevel string `env:"GLASSBRIDGE_LOG_LEVEL" envDefault:"info"`
	// LogFile receives logs while the terminal UI owns stdout.
	LogFile string `env:"GLASSBRIDGE_LOG_FILE"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	return cfg, nil
}

// Validate rejects settings the game cannot start with.
func (c Config) Validate() error {
	if c.TotalPairs < 1 {
		return errors.Errorf("GLASSBRIDGE_PAIRS must be at least 1, got %d", c.TotalPairs)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, errors.Wrapf(err, "log level %q", s)
	}
	return l, nil
}

// NewLogger returns a logger at level writing zap console lines to w. A
// nil w discards. Components only see the slog front.
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = io.Discard
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), zapLevel(l))
	return slog.New(zapslog.NewHandler(core)), nil
}

// zapLevel maps slog levels (steps of 4) onto zap levels (steps of 1).
func zapLevel(l slog.Level) zapcore.Level {
	return zapcore.Level(int(l) / 4)
}
