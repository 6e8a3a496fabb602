package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr          string
	JWTIssuer         string
	JWTSecret         string
	JWTTTL            time.Duration
	InternalTokenHash string
	WebSocketOrigin   string

	// Optional external systems. Empty means the feature is off: no value
	// for DBDSN keeps state in memory only.
	DBDSN     string
	NATSURL   string
	RedisAddr string

	FeedSeed       int64
	TickInterval   time.Duration
	MirrorInterval time.Duration
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.InternalTokenHash = os.Getenv("INTERNAL_TOKEN_HASH")
	if c.InternalTokenHash == "" {
		missing = append(missing, "INTERNAL_TOKEN_HASH")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}

	c.DBDSN = os.Getenv("DB_DSN")
	c.NATSURL = os.Getenv("NATS_URL")
	c.RedisAddr = os.Getenv("REDIS_ADDR")

	seed := os.Getenv("FEED_SEED")
	if seed == "" {
		c.FeedSeed = time.Now().UnixNano()
	} else {
		n, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return c, errors.New("invalid FEED_SEED")
		}
		c.FeedSeed = n
	}

	var err error
	c.TickInterval, err = durationEnv("TICK_INTERVAL", time.Second)
	if err != nil {
		return c, err
	}
	c.MirrorInterval, err = durationEnv("MIRROR_INTERVAL", 5*time.Second)
	if err != nil {
		return c, err
	}

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + join(missing))
	}
	return c, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return d, nil
}

func join(items []string) string {
	if len(items) == 0 {
		return ""
	}
	out := items[0]
	for i := 1; i < len(items); i++ {
		out += "," + items[i]
	}
	return out
}
