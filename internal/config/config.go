package config // package config loads application configuration from environment variables

import (
    "errors"  // errors joins missing-variable failures into one report
    "fmt"     // fmt formats validation errors
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings trims and splits duration values
    "time"    // time parses token lifetimes

    "github.com/labstack/gommon/bytes" // size notation shared with echo's BodyLimit
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Values are read once at process start and
// treated as read-only afterwards; nothing in the application mutates them.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBDriver   string // identity store backend: "mysql" or "mongo"
    DBUser     string // database username
    DBPass     string // database password (optional)
    DBHost     string // database host address
    DBPort     string // database port number
    DBName     string // database name (MySQL schema or Mongo database)
    MongoURI   string // MongoDB connection string, used when DBDriver is "mongo"
    BcryptCost int    // bcrypt cost for password hashing

    AccessTokenSecret  string        // secret used to sign access tokens
    AccessTokenTTL     time.Duration // access token lifetime
    RefreshTokenSecret string        // secret used to sign refresh tokens
    RefreshTokenTTL    time.Duration // refresh token lifetime
    SecureCookies      bool          // set the Secure flag on auth cookies

    CORSOrigin   string // allowed CORS origin
    BodyLimit    string // maximum JSON body size, echo notation (e.g. "16K")
    MediaMaxSize int64  // maximum uploaded file size in bytes
    StaticDir    string // directory served as static files
    UploadDir    string // temporary directory for multipart uploads
    LogLevel     string // slog level: debug, info, warn, error
    AMQPURL      string // RabbitMQ URL for audit events (empty disables them)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables that are unset or empty are collected and
// reported together so that a misconfigured deployment fails with one
// message instead of one restart per missing key.
func Load() (Config, error) {
    var errs []error

    req := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || v == "" {
            errs = append(errs, fmt.Errorf("missing required env var: %s", key))
        }
        return v
    }
    reqDur := func(key string) time.Duration {
        s := req(key)
        if s == "" {
            return 0
        }
        d, err := ParseExpiry(s)
        if err != nil {
            errs = append(errs, fmt.Errorf("invalid duration for %s: %q", key, s))
        }
        return d
    }

    cfg := Config{
        Env:  envStr("APP_ENV", "dev"),
        Port: envStr("PORT", "5000"),

        DBDriver:   strings.ToLower(envStr("DB_DRIVER", "mysql")),
        DBUser:     envStr("DB_USER", "root"),
        DBPass:     os.Getenv("DB_PASS"), // empty allowed
        DBHost:     envStr("DB_HOST", "127.0.0.1"),
        DBPort:     envStr("DB_PORT", "3306"),
        DBName:     envStr("DB_NAME", "scaffold"),
        MongoURI:   envStr("MONGODB_URI", "mongodb://localhost:27017"),
        BcryptCost: envInt("BCRYPT_COST", 10),

        AccessTokenSecret:  req("ACCESSTOKEN_SECRETKEY"),
        AccessTokenTTL:     reqDur("ACCESSTOKEN_EXPIRYDATE"),
        RefreshTokenSecret: req("REFRESHTOKEN_SECRETKEY"),
        RefreshTokenTTL:    reqDur("REFRESHTOKEN_EXPIRYDATE"),

        CORSOrigin: envStr("CORS_ORIGIN", "http://localhost:3000"),
        BodyLimit:  envStr("BODY_LIMIT", "16K"),
        StaticDir:  envStr("STATIC_DIR", "public"),
        UploadDir:  envStr("UPLOAD_DIR", "public/temp"),
        LogLevel:   envStr("LOG_LEVEL", "info"),
        AMQPURL:    envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
    }
    if _, err := bytes.Parse(cfg.BodyLimit); err != nil {
        errs = append(errs, fmt.Errorf("invalid BODY_LIMIT: %q", cfg.BodyLimit))
    }
    mediaMax := envStr("MEDIA_MAX_SIZE", "10M")
    if n, err := bytes.Parse(mediaMax); err != nil || n <= 0 {
        errs = append(errs, fmt.Errorf("invalid MEDIA_MAX_SIZE: %q", mediaMax))
    } else {
        cfg.MediaMaxSize = n
    }
    cfg.SecureCookies = envBool("SECURE_COOKIES", cfg.Env == "prod")

    if cfg.DBDriver != "mysql" && cfg.DBDriver != "mongo" {
        errs = append(errs, fmt.Errorf("unsupported DB_DRIVER: %q", cfg.DBDriver))
    }
    if cfg.AccessTokenSecret != "" && cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
        errs = append(errs, errors.New("access and refresh token secrets must differ"))
    }
    if len(errs) > 0 {
        return Config{}, errors.Join(errs...)
    }
    return cfg, nil
}

// ParseExpiry parses a token lifetime.  It accepts everything
// time.ParseDuration accepts plus a "d" suffix for whole days ("7d"), the
// notation commonly used for token expiry settings.  Zero and negative
// values are rejected.
func ParseExpiry(s string) (time.Duration, error) {
    s = strings.TrimSpace(s)
    var d time.Duration
    if days, ok := strings.CutSuffix(s, "d"); ok {
        n, err := strconv.Atoi(days)
        if err != nil {
            return 0, fmt.Errorf("parse days %q: %w", s, err)
        }
        d = time.Duration(n) * 24 * time.Hour
    } else {
        var err error
        if d, err = time.ParseDuration(s); err != nil {
            return 0, err
        }
    }
    if d <= 0 {
        return 0, fmt.Errorf("expiry must be positive: %q", s)
    }
    return d, nil
}
