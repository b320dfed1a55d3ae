package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	RedisAddr     string `env:"REDIS_ADDR"`

	// ReferralPercent — процент комиссии реферера от суммы платежа.
	ReferralPercent decimal.Decimal `env:"REFERRAL_PERCENT" envDefault:"10"`

	DBPoolMaxConns        int32         `env:"DB_POOL_MAX_CONNS" envDefault:"10"`
	DBPoolMinConns        int32         `env:"DB_POOL_MIN_CONNS" envDefault:"2"`
	DBPoolMaxConnLifetime time.Duration `env:"DB_POOL_MAX_CONN_LIFETIME" envDefault:"30m"`

	RecoveryScanInterval   time.Duration `env:"RECOVERY_SCAN_INTERVAL" envDefault:"1m"`
	RecoveryHealthInterval time.Duration `env:"RECOVERY_HEALTH_INTERVAL" envDefault:"15s"`
	RecoveryMaxAttempts    uint          `env:"RECOVERY_MAX_ATTEMPTS" envDefault:"5"`

	AdmissionBanDuration time.Duration `env:"ADMISSION_BAN_DURATION" envDefault:"5m"`
	AdmissionAdminBypass bool          `env:"ADMISSION_ADMIN_BYPASS" envDefault:"true"`

	BroadcastBatchSize  uint          `env:"BROADCAST_BATCH_SIZE" envDefault:"30"`
	BroadcastBatchDelay time.Duration `env:"BROADCAST_BATCH_DELAY" envDefault:"1s"`
}

func LoadConfig() (*Config, error) {
	var envConfig Config
	var flagsConfig flagValues

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.RedisAddr == "" {
		return nil, errors.New("redis address is not set")
	}
	if conf.ReferralPercent.IsNegative() {
		return nil, errors.New("referral percent must not be negative")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

// flagValues — строковые настройки, дублируемые флагами. Остальное живет
// только в окружении.
type flagValues struct {
	DatabaseDSN   string
	MigrationsDir string
	RedisAddr     string
}

func loadFlags(flagConfig *flagValues) {
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "migrations", "Database migrations directory")
	flag.StringVar(&flagConfig.RedisAddr, "r", "localhost:6379", "Redis address in format host:port")

	flag.Parse()
}

func mergeConfig(envConfig *Config, flagsConfig *flagValues) *Config {
	conf := *envConfig
	conf.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	conf.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	conf.RedisAddr = defaultIfBlank(envConfig.RedisAddr, flagsConfig.RedisAddr)
	return &conf
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
