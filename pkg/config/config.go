package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Sweep        SweepConfig
	Rewards      RewardsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"REWARDS_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"REWARDS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REWARDS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"REWARDS_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"REWARDS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REWARDS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REWARDS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REWARDS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REWARDS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REWARDS_REDIS_ADDR"`
	Password     string        `envconfig:"REWARDS_REDIS_PASSWORD"`
	DB           int           `envconfig:"REWARDS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REWARDS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REWARDS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REWARDS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REWARDS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REWARDS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SweepConfig tunes the periodic sweep worker.
type SweepConfig struct {
	Interval          time.Duration `envconfig:"REWARDS_SWEEP_INTERVAL" default:"24h"`
	LockTTL           time.Duration `envconfig:"REWARDS_SWEEP_LOCK_TTL" default:"25h"`
	NotificationBatch int           `envconfig:"REWARDS_SWEEP_NOTIFICATION_BATCH" default:"500"`
}

// RewardsConfig carries the business knobs of the promotions and
// rewards ledger. None of these are hardcoded in the services.
type RewardsConfig struct {
	SignupBonusPoints       int64         `envconfig:"REWARDS_SIGNUP_BONUS_POINTS" default:"100"`
	ReferralPointsReward    int64         `envconfig:"REWARDS_REFERRAL_POINTS_REWARD" default:"200"`
	RefereeDiscountPercent  int64         `envconfig:"REWARDS_REFEREE_DISCOUNT_PERCENT" default:"10"`
	PointsPerCurrencyUnit   int64         `envconfig:"REWARDS_POINTS_PER_CURRENCY_UNIT" default:"1"`
	PointValueCents         int64         `envconfig:"REWARDS_POINT_VALUE_CENTS" default:"1"`
	PointsLifetime          time.Duration `envconfig:"REWARDS_POINTS_LIFETIME" default:"8760h"`
	GiftCardLifetime        time.Duration `envconfig:"REWARDS_GIFT_CARD_LIFETIME" default:"8760h"`
	TierLifetime            time.Duration `envconfig:"REWARDS_TIER_LIFETIME" default:"8760h"`
	CodeMaxAttempts         int           `envconfig:"REWARDS_CODE_MAX_ATTEMPTS" default:"5"`
	ReferralCodeMaxUsage    int           `envconfig:"REWARDS_REFERRAL_CODE_MAX_USAGE" default:"0"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"REWARDS_AUTO_MIGRATE" default:"false"`
}
