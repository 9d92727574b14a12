package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"   validate:"required"`
	Logger   LoggerConfig   `yaml:"logger"   validate:"required"`
	Storage  StorageConfig  `yaml:"storage"  validate:"required"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Checkout CheckoutConfig `yaml:"checkout" validate:"required"`
	Payment  PaymentConfig  `yaml:"payment"  validate:"required"`
	PubNub   PubNubConfig   `yaml:"pubnub"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"          env:"SERVER_ADDR"          env-default:":8080" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  env:"SERVER_READ_TIMEOUT"  env-default:"5s"    validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"   validate:"gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  env:"SERVER_IDLE_TIMEOUT"  env-default:"120s"  validate:"gt=0"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json" validate:"required,oneof=json text"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres" validate:"required,oneof=postgres mongo memory"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"              env:"DB_HOST"              env-default:"localhost"      validate:"required"`
	Port            int           `yaml:"port"              env:"DB_PORT"              env-default:"5432"           validate:"min=1,max=65535"`
	User            string        `yaml:"user"              env:"DB_USER"              env-default:"postgres"       validate:"required"`
	Password        string        `yaml:"password"          env:"DB_PASSWORD"          env-default:""`
	Database        string        `yaml:"database"          env:"DB_NAME"              env-default:"runway_checkout" validate:"required"`
	SSLMode         string        `yaml:"sslmode"           env:"DB_SSLMODE"           env-default:"disable"        validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"DB_MAX_OPEN_CONNS"    env-default:"25"             validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"DB_MAX_IDLE_CONNS"    env-default:"25"             validate:"min=1"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"5m"             validate:"gt=0"`
	ConnectRetries  int           `yaml:"connect_retries"   env:"DB_CONNECT_RETRIES"   env-default:"10"             validate:"min=1"`
	Migrate         bool          `yaml:"migrate"           env:"DB_MIGRATE"           env-default:"true"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type MongoConfig struct {
	URI      string `yaml:"uri"      env:"MONGO_URI"      env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"runway_checkout"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"  env:"REDIS_ENABLED"  env-default:"true"`
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"     env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0" validate:"min=0"`
}

// CheckoutConfig holds the pricing and session knobs. Fee values stay
// strings here so they reach decimal.Decimal without a float round trip.
type CheckoutConfig struct {
	MaxPerPerson      int           `yaml:"max_per_person"      env:"CHECKOUT_MAX_PER_PERSON"      env-default:"10"    validate:"min=1"`
	FeeRate           string        `yaml:"fee_rate"            env:"CHECKOUT_FEE_RATE"            env-default:"0.029" validate:"required,numeric"`
	FixedFee          string        `yaml:"fixed_fee"           env:"CHECKOUT_FIXED_FEE"           env-default:"0.30"  validate:"required,numeric"`
	SessionTTL        time.Duration `yaml:"session_ttl"         env:"CHECKOUT_SESSION_TTL"         env-default:"30m"   validate:"gt=0"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"    env:"CHECKOUT_CLEANUP_INTERVAL"    env-default:"1m"    validate:"gt=0"`
	PendingPaymentTTL time.Duration `yaml:"pending_payment_ttl" env:"CHECKOUT_PENDING_PAYMENT_TTL" env-default:"24h"   validate:"gtefield=SessionTTL"`
	CatalogCacheTTL   time.Duration `yaml:"catalog_cache_ttl"   env:"CHECKOUT_CATALOG_CACHE_TTL"   env-default:"30s"   validate:"gte=0"`
	CommitTokenTTL    time.Duration `yaml:"commit_token_ttl"    env:"CHECKOUT_COMMIT_TOKEN_TTL"    env-default:"24h"   validate:"gt=0"`
}

type PaymentConfig struct {
	Provider   string        `yaml:"provider"    env:"PAYMENT_PROVIDER"    env-default:"sandbox" validate:"required,oneof=sandbox gateway"`
	GatewayURL string        `yaml:"gateway_url" env:"PAYMENT_GATEWAY_URL" env-default:""        validate:"required_if=Provider gateway"`
	APIKey     string        `yaml:"api_key"     env:"PAYMENT_API_KEY"     env-default:""`
	Timeout    time.Duration `yaml:"timeout"     env:"PAYMENT_TIMEOUT"     env-default:"15s"     validate:"gt=0"`

	// CallbackSecret signs asynchronous payment callbacks. Callbacks are
	// refused while it is empty.
	CallbackSecret string `yaml:"callback_secret" env:"PAYMENT_CALLBACK_SECRET" env-default:""`
}

// PubNubConfig enables realtime booking notifications when PublishKey is set.
type PubNubConfig struct {
	PublishKey   string `yaml:"publish_key"   env:"PUBNUB_PUBLISH_KEY"   env-default:""`
	SubscribeKey string `yaml:"subscribe_key" env:"PUBNUB_SUBSCRIBE_KEY" env-default:""`
	UserID       string `yaml:"user_id"       env:"PUBNUB_USER_ID"       env-default:"runway-checkout"`
}

func (p PubNubConfig) Enabled() bool {
	return p.PublishKey != ""
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

var ErrNegativeFee = errors.New("fee values must not be negative")

// FeeSchedule parses the configured fee policy.
func (c CheckoutConfig) FeeSchedule() (domain.FeeSchedule, error) {
	rate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return domain.FeeSchedule{}, fmt.Errorf("parse fee_rate %q: %w", c.FeeRate, err)
	}

	fixed, err := decimal.NewFromString(c.FixedFee)
	if err != nil {
		return domain.FeeSchedule{}, fmt.Errorf("parse fixed_fee %q: %w", c.FixedFee, err)
	}

	if rate.IsNegative() || fixed.IsNegative() {
		return domain.FeeSchedule{}, ErrNegativeFee
	}

	return domain.FeeSchedule{Rate: rate, Fixed: fixed}, nil
}

// Load reads the YAML file named by CONFIG_PATH when set, then applies
// environment overrides and defaults, then validates.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if _, err := cfg.Checkout.FeeSchedule(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	return cfg
}
