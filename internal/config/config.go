package config

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/es"
	"github.com/Skotchmaster/supermarket/internal/session"
	pkgconfig "github.com/Skotchmaster/supermarket/pkg/config"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"supermarket"`
	ServerPort  int    `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTAccessSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	JWTRefreshSecret string        `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	AccessTTL        time.Duration `envconfig:"ACCESS_TTL" default:"15m"`
	RefreshTTL       time.Duration `envconfig:"REFRESH_TTL" default:"168h"`
	CookieSecure     bool          `envconfig:"COOKIE_SECURE" default:"true"`
	LoginRatePerMin  int           `envconfig:"LOGIN_RATE_PER_MIN" default:"10"`

	Redis      session.RedisConfig
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	ES es.Config

	DeliveryFee decimal.Decimal `envconfig:"DELIVERY_FEE" default:"5.00"`
	TaxRate     decimal.Decimal `envconfig:"TAX_RATE" default:"0.08"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

func Load(files ...string) (*Config, error) {
	var cfg Config
	if err := pkgconfig.Load(&cfg, files...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
