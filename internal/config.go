package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host       string `env:"HOST,default=0.0.0.0"`
	Port       int    `env:"PORT,default=5001"`
	HealthPort int    `env:"HEALTH_PORT,default=5002"`
	DebugPort  int    `env:"DEBUG_PORT,default=8081"`
	LogLevel   string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`
	SearchLimit    int    `env:"SEARCH_LIMIT,default=50"`

	MediaDir       string `env:"MEDIA_DIR,required=true"`
	MediaBaseURL   string `env:"MEDIA_BASE_URL,default=/media"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=5242880"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=168h"`
	CookieSecure      bool          `env:"COOKIE_SECURE,default=false"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS,default=http://localhost:5173"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	PushTimeout          time.Duration `env:"PUSH_TIMEOUT,default=200ms"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=25s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	MaxFrameSize         int64         `env:"MAX_FRAME_SIZE,default=4096"`
	DeliveryBroadcastAll bool          `env:"DELIVERY_BROADCAST_ALL,default=false"`

	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=1m"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
	MaxTextLength   int    `env:"MAX_TEXT_LENGTH,default=2000"`
}

// Origins splits ALLOWED_ORIGINS on commas, "*" accepts any origin.
func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate rejects values that would make the server misbehave at runtime.
func (c Config) Validate() error {
	if c.PingInterval >= c.PongTimeout {
		return fmt.Errorf("PING_INTERVAL (%s) must be lower than PONG_TIMEOUT (%s)", c.PingInterval, c.PongTimeout)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("MAX_TEXT_LENGTH must be positive, got %d", c.MaxTextLength)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
