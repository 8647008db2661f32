package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Midtrans  MidtransConfig  `mapstructure:"midtrans"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Voucher   VoucherConfig   `mapstructure:"voucher"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// MidtransConfig configures the hosted-checkout gateway. ServerKey doubles as
// the secret mixed into notification signatures.
type MidtransConfig struct {
	ServerKey  string        `mapstructure:"server_key"`
	Production bool          `mapstructure:"production"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	MinimumAmount int64 `mapstructure:"minimum_amount"` // smallest chargeable amount, in IDR
}

// Voucher quota consumption points.
const (
	ConsumeOnCheckout   = "checkout"
	ConsumeOnSettlement = "settlement"
)

type VoucherConfig struct {
	ConsumeOn string `mapstructure:"consume_on"` // checkout | settlement
}

// ConsumeAtSettlement reports whether quota is taken on the success transition.
func (v VoucherConfig) ConsumeAtSettlement() bool {
	return v.ConsumeOn == ConsumeOnSettlement
}

type KafkaConfig struct {
	Brokers   []string `mapstructure:"brokers"`
	MailTopic string   `mapstructure:"mail_topic"`
}

// Enabled reports whether a broker list was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ReconcileConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Schedule  string        `mapstructure:"schedule"`
	MinAge    time.Duration `mapstructure:"min_age"`
	BatchSize int           `mapstructure:"batch_size"`

	// ExpireAfter fails open orders the gateway has no record of once they
	// are this old. Zero keeps them pending.
	ExpireAfter time.Duration `mapstructure:"expire_after"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ACM_ (Academy CoMmerce).
// Nested keys use underscore: ACM_DATABASE_HOST, ACM_MIDTRANS_SERVER_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "academy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "academy-commerce")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("midtrans.server_key", "")
	v.SetDefault("midtrans.production", false)
	v.SetDefault("midtrans.timeout", "15s")
	v.SetDefault("payment.minimum_amount", 10000)
	v.SetDefault("voucher.consume_on", ConsumeOnCheckout)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.mail_topic", "mail.outbound")
	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.schedule", "@every 15m")
	v.SetDefault("reconcile.min_age", "30m")
	v.SetDefault("reconcile.batch_size", 100)
	v.SetDefault("reconcile.expire_after", "24h")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: ACM_DATABASE_HOST -> database.host
	v.SetEnvPrefix("ACM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Voucher.ConsumeOn {
	case ConsumeOnCheckout, ConsumeOnSettlement:
	default:
		return fmt.Errorf("voucher.consume_on must be %q or %q, got %q",
			ConsumeOnCheckout, ConsumeOnSettlement, c.Voucher.ConsumeOn)
	}
	if c.Payment.MinimumAmount < 0 {
		return fmt.Errorf("payment.minimum_amount must not be negative")
	}
	return nil
}
