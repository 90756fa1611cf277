package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable; concern-specific settings (cache, rate limit,
// events, sweeper) live in their own loaders.
type Config struct {
    Env            string // APP_ENV (dev, test, prod)
    Port           string // APP_PORT
    DBUser         string // DB_USER
    DBPass         string // DB_PASS (optional)
    DBHost         string // DB_HOST
    DBPort         string // DB_PORT
    DBName         string // DB_NAME
    JWTSecret      string // JWT_SECRET
    AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
    RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
    BcryptCost     int    // BCRYPT_COST
    LogLevel       string // LOG_LEVEL (debug, info, warn, error)
    RequestTimeout time.Duration
}

// LoadDotEnv reads a .env file into the process environment when one is
// present.  Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
    if len(paths) == 0 {
        paths = []string{".env"}
    }
    for _, p := range paths {
        if _, err := os.Stat(p); err == nil {
            _ = godotenv.Load(p)
        }
    }
}

// Load reads configuration values from environment variables.  Every missing
// required variable and every malformed integer is reported in the returned
// error.
func Load() (Config, error) {
    var l loader
    cfg := Config{
        Env:            envStr("APP_ENV", "dev"),
        Port:           l.must("APP_PORT"),
        DBUser:         l.must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         l.must("DB_HOST"),
        DBPort:         l.must("DB_PORT"),
        DBName:         l.must("DB_NAME"),
        JWTSecret:      l.must("JWT_SECRET"),
        AccessTTLMin:   l.intOr("ACCESS_TOKEN_TTL_MIN", 15),
        RefreshTTLDays: l.intOr("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:     l.intOr("BCRYPT_COST", 10),
        LogLevel:       strings.ToLower(envStr("LOG_LEVEL", "info")),
        RequestTimeout: envDur("REQUEST_TIMEOUT", 5*time.Second),
    }
    if len(l.errs) > 0 {
        return Config{}, errors.Join(l.errs...)
    }
    return cfg, nil
}

// loader collects errors so Load can report every problem at once.
type loader struct{ errs []error }

func (l *loader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || strings.TrimSpace(v) == "" {
        l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
    }
    return v
}

func (l *loader) intOr(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
        return def
    }
    return n
}
