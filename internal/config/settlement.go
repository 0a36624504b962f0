package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SettlementPolicy holds the tunables operators may change without a
// restart. It is read from settlement.yml and hot-reloaded.
type SettlementPolicy struct {
	Sequence   SequencePolicy  `mapstructure:"sequence"`
	Order      OrderPolicy     `mapstructure:"order"`
	Cutoff     CutoffPolicy    `mapstructure:"cutoff"`
	Settlement SettlementRules `mapstructure:"settlement"`
	Payment    PaymentPolicy   `mapstructure:"payment"`
}

type SequencePolicy struct {
	// Prefixes overrides the document prefix per sequence domain.
	Prefixes    map[string]string `mapstructure:"prefixes"`
	MaxAttempts int               `mapstructure:"maxAttempts"`
}

type OrderPolicy struct {
	MaxAttempts int `mapstructure:"maxAttempts"`
}

type CutoffPolicy struct {
	MaxAttempts int `mapstructure:"maxAttempts"`
}

type SettlementRules struct {
	MaxAttempts        int           `mapstructure:"maxAttempts"`
	LockTTL            time.Duration `mapstructure:"lockTTL"`
	UncategorizedLabel string        `mapstructure:"uncategorizedLabel"`
}

type PaymentPolicy struct {
	MaxAttempts int `mapstructure:"maxAttempts"`
	// AllowNegativeBalance lets a collection or payout exceed the
	// outstanding balance, leaving the account in credit.
	AllowNegativeBalance bool `mapstructure:"allowNegativeBalance"`
}

func DefaultSettlementPolicy() SettlementPolicy {
	return SettlementPolicy{
		Sequence: SequencePolicy{
			Prefixes:    map[string]string{},
			MaxAttempts: 3,
		},
		Order:  OrderPolicy{MaxAttempts: 3},
		Cutoff: CutoffPolicy{MaxAttempts: 3},
		Settlement: SettlementRules{
			MaxAttempts:        3,
			LockTTL:            30 * time.Second,
			UncategorizedLabel: "uncategorized",
		},
		Payment: PaymentPolicy{
			MaxAttempts:          3,
			AllowNegativeBalance: true,
		},
	}
}

type SettlementPolicyHolder struct {
	current atomic.Value // holds SettlementPolicy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(policy SettlementPolicy) *SettlementPolicyHolder {
	holder := &SettlementPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewSettlementPolicyHolder(log *zap.Logger) (*SettlementPolicyHolder, error) {
	return loadSettlementPolicy(log, "/etc/tradebook", ".")
}

func loadSettlementPolicy(log *zap.Logger, paths ...string) (*SettlementPolicyHolder, error) {
	log = log.Named("config.settlement")
	v := viper.New()

	v.SetConfigName("settlement")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("TRADEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettlementPolicy()
	v.SetDefault("policy.sequence.prefixes", defaults.Sequence.Prefixes)
	v.SetDefault("policy.sequence.maxAttempts", defaults.Sequence.MaxAttempts)
	v.SetDefault("policy.order.maxAttempts", defaults.Order.MaxAttempts)
	v.SetDefault("policy.cutoff.maxAttempts", defaults.Cutoff.MaxAttempts)
	v.SetDefault("policy.settlement.maxAttempts", defaults.Settlement.MaxAttempts)
	v.SetDefault("policy.settlement.lockTTL", defaults.Settlement.LockTTL)
	v.SetDefault("policy.settlement.uncategorizedLabel", defaults.Settlement.UncategorizedLabel)
	v.SetDefault("policy.payment.maxAttempts", defaults.Payment.MaxAttempts)
	v.SetDefault("policy.payment.allowNegativeBalance", defaults.Payment.AllowNegativeBalance)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(cfg)
	if !fileFound {
		log.Info("settlement policy file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePolicy(v)
		if err != nil {
			log.Warn("settlement policy reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("settlement policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Get returns the active policy. A nil holder yields the defaults.
func (h *SettlementPolicyHolder) Get() SettlementPolicy {
	if h == nil {
		return DefaultSettlementPolicy()
	}
	policy, ok := h.current.Load().(SettlementPolicy)
	if !ok {
		return DefaultSettlementPolicy()
	}
	return policy
}

func decodePolicy(v *viper.Viper) (SettlementPolicy, error) {
	var root struct {
		Policy SettlementPolicy `mapstructure:"policy"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return SettlementPolicy{}, err
	}
	cfg := root.Policy
	if err := ValidateSettlementPolicy(cfg); err != nil {
		return SettlementPolicy{}, err
	}
	return cfg, nil
}

func ValidateSettlementPolicy(cfg SettlementPolicy) error {
	if cfg.Sequence.MaxAttempts < 1 {
		return errors.New("policy.sequence.maxAttempts must be at least 1")
	}
	if cfg.Order.MaxAttempts < 1 {
		return errors.New("policy.order.maxAttempts must be at least 1")
	}
	if cfg.Cutoff.MaxAttempts < 1 {
		return errors.New("policy.cutoff.maxAttempts must be at least 1")
	}
	if cfg.Settlement.MaxAttempts < 1 {
		return errors.New("policy.settlement.maxAttempts must be at least 1")
	}
	if cfg.Payment.MaxAttempts < 1 {
		return errors.New("policy.payment.maxAttempts must be at least 1")
	}
	if strings.TrimSpace(cfg.Settlement.UncategorizedLabel) == "" {
		return errors.New("policy.settlement.uncategorizedLabel cannot be empty")
	}
	for domain, prefix := range cfg.Sequence.Prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" || strings.Contains(prefix, "-") {
			return fmt.Errorf("policy.sequence.prefixes.%s: invalid prefix %q", domain, prefix)
		}
	}
	return nil
}
