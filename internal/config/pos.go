package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// POSConfig holds the register settings that back-office staff tune
// without redeploying: tax rate, currency and stock alerting.
type POSConfig struct {
	TaxRate           float64 `mapstructure:"taxRate"`
	Currency          string  `mapstructure:"currency"`
	InvoicePrefix     string  `mapstructure:"invoicePrefix"`
	LowStockThreshold int64   `mapstructure:"lowStockThreshold"`
}

func (c POSConfig) TaxRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TaxRate)
}

func DefaultPOSConfig() POSConfig {
	return POSConfig{
		TaxRate:           0.05,
		Currency:          "USD",
		InvoicePrefix:     "INV",
		LowStockThreshold: 5,
	}
}

// POSConfigHolder exposes the current POSConfig and hot-reloads it
// when the underlying file changes.
type POSConfigHolder struct {
	current atomic.Value // holds POSConfig
}

func NewPOSConfigHolder(logger *zap.Logger) (*POSConfigHolder, error) {
	log := logger.Named("pos.config")
	v := viper.New()

	v.SetConfigName("pos")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tillpoint/config")
	v.AddConfigPath("/etc/tillpoint")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TILLPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPOSConfig()
	v.SetDefault("pos.taxRate", defaults.TaxRate)
	v.SetDefault("pos.currency", defaults.Currency)
	v.SetDefault("pos.invoicePrefix", defaults.InvoicePrefix)
	v.SetDefault("pos.lowStockThreshold", defaults.LowStockThreshold)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg POSConfig
	if err := v.UnmarshalKey("pos", &cfg); err != nil {
		return nil, err
	}
	if err := validatePOSConfig(cfg); err != nil {
		return nil, err
	}

	holder := &POSConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated POSConfig
		if err := v.UnmarshalKey("pos", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validatePOSConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *POSConfigHolder) Get() POSConfig {
	return h.current.Load().(POSConfig)
}

// NewStaticPOSConfigHolder returns a holder pinned to cfg. Tests use it
// to avoid touching the filesystem.
func NewStaticPOSConfigHolder(cfg POSConfig) *POSConfigHolder {
	holder := &POSConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validatePOSConfig(cfg POSConfig) error {
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return errors.New("pos.taxRate must be in [0, 1)")
	}
	if strings.TrimSpace(cfg.InvoicePrefix) == "" {
		return errors.New("pos.invoicePrefix cannot be empty")
	}
	if cfg.LowStockThreshold < 0 {
		return errors.New("pos.lowStockThreshold cannot be negative")
	}
	return nil
}
