package internal

import (
	"fmt"
	"time"
)

// Config holds the server-side environment configuration, loaded once at
// startup via Netflix/go-env.
type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	// Fan-out pipeline
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=5s"`

	// Supervision & monitoring
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`

	// Moderation
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
	CensoredWords   string `env:"CENSORED_WORDS"`

	// Limits
	MaxContentLength  int `env:"MAX_CONTENT_LENGTH,default=4096"`
	MaxAttachmentSize int `env:"MAX_ATTACHMENT_SIZE,default=5242880"`
	RateLimitGeneral  int `env:"RATE_LIMIT_GENERAL,default=120"`
}

// CharacterRune extracts the single-rune replacement character used by the
// moderation pass.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
