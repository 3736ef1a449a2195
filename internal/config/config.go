package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Zarinpal holds the payment gateway settings.
type Zarinpal struct {
	MerchantID  string
	Sandbox     bool
	CallbackURL string
	Description string
	// ReturnURL is the storefront page the callback redirects to. The
	// callback answers with JSON when it is empty.
	ReturnURL string
}

// Config is everything the API reads from the environment.
type Config struct {
	AppEnv  string
	Port    string
	BaseURL string

	// Storage selects the persistence backend: "mysql" or "memory".
	Storage     string
	DatabaseDSN string
	AutoMigrate bool

	// BootstrapAdminPhone is made a super admin at startup when no admin
	// with that phone exists yet.
	BootstrapAdminPhone string

	JWTSecret    string
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool

	OTPTTL          time.Duration
	OTPWindow       time.Duration
	OTPMaxPerWindow int
	OTPMaxAttempts  int

	AllowedOrigins []string
	UploadDir      string

	Zarinpal Zarinpal

	RevalidateURL    string
	RevalidateSecret string
}

// Load reads the .env file (when present) and the process environment.
// Malformed numbers and durations fall back to their defaults with a warning.
func Load(log *zap.Logger) Config {
	if err := godotenv.Load(); err != nil {
		log.Warn("could not load .env file, relying on system environment variables")
	}

	l := loader{log: log}
	cfg := Config{
		AppEnv:  l.str("APP_ENV", "development"),
		Port:    l.str("PORT", "8080"),
		BaseURL: strings.TrimRight(l.str("BASE_URL", "http://localhost:8080"), "/"),

		Storage:     l.str("STORAGE", "mysql"),
		DatabaseDSN: l.str("DB_DSN_PRIMARY", "root:root@tcp(127.0.0.1:3306)/storefront?parseTime=true"),
		AutoMigrate: l.boolean("DB_AUTO_MIGRATE", false),

		BootstrapAdminPhone: l.str("BOOTSTRAP_ADMIN_PHONE", ""),

		JWTSecret:    l.str("JWT_SECRET", ""),
		SessionTTL:   l.duration("SESSION_TTL", 72*time.Hour),
		CookieName:   l.str("SESSION_COOKIE", "session"),
		CookieSecure: l.boolean("SESSION_COOKIE_SECURE", false),

		OTPTTL:          l.duration("OTP_TTL", 2*time.Minute),
		OTPWindow:       l.duration("OTP_WINDOW", 10*time.Minute),
		OTPMaxPerWindow: l.integer("OTP_MAX_PER_WINDOW", 3),
		OTPMaxAttempts:  l.integer("OTP_MAX_ATTEMPTS", 5),

		AllowedOrigins: l.list("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		UploadDir:      l.str("UPLOAD_DIR", "./uploads"),

		Zarinpal: Zarinpal{
			MerchantID:  l.str("ZARINPAL_MERCHANT_ID", ""),
			Sandbox:     l.boolean("ZARINPAL_SANDBOX", true),
			CallbackURL: l.str("ZARINPAL_CALLBACK_URL", "http://localhost:8080/v1/payment/callback"),
			Description: l.str("ZARINPAL_DESCRIPTION", "Order payment"),
			ReturnURL:   l.str("PAYMENT_RETURN_URL", ""),
		},

		RevalidateURL:    l.str("REVALIDATE_URL", ""),
		RevalidateSecret: l.str("REVALIDATE_SECRET", ""),
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, using an insecure development secret")
		cfg.JWTSecret = "development-secret-change-me"
	}
	return cfg
}

type loader struct {
	log *zap.Logger
}

func (l loader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (l loader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.log.Warn("invalid integer in environment, using default", zap.String("key", key), zap.Int("default", def))
		return def
	}
	return n
}

func (l loader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.log.Warn("invalid duration in environment, using default", zap.String("key", key), zap.Duration("default", def))
		return def
	}
	return d
}

func (l loader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.log.Warn("invalid boolean in environment, using default", zap.String("key", key), zap.Bool("default", def))
		return def
	}
	return b
}

func (l loader) list(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
