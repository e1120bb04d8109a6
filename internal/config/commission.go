package config

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/bemynet/marketplace/internal/commission"
	"github.com/bemynet/marketplace/internal/money"
)

type CommissionConfigHolder struct {
	current atomic.Value // holds commission.Tiers
}

func NewCommissionConfigHolder() (*CommissionConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("commission")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/bemynet/config") // Volume-mounted config
	v.AddConfigPath("/etc/bemynet")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	// env hanya untuk path override (optional)
	v.SetEnvPrefix("BEMYNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := commission.DefaultTiers()
		v.SetDefault("commission.base", defaults.Base)
		v.SetDefault("commission.commercialOnly", defaults.CommercialOnly)
		v.SetDefault("commission.partnerOnly", defaults.PartnerOnly)
		v.SetDefault("commission.both", defaults.Both)
	}

	var tiers commission.Tiers
	if err := v.UnmarshalKey("commission", &tiers); err != nil {
		return nil, err
	}
	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	holder := &CommissionConfigHolder{}
	holder.current.Store(tiers)

	// 🔥 HOT RELOAD
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated commission.Tiers
		if err := v.UnmarshalKey("commission", &updated); err != nil {
			log.Printf("[commission-config] reload failed: %v", err)
			return
		}
		if err := validateTiers(updated); err != nil {
			log.Printf("[commission-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[commission-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *CommissionConfigHolder) Get() commission.Tiers {
	return h.current.Load().(commission.Tiers)
}

func validateTiers(tiers commission.Tiers) error {
	for name, rate := range map[string]money.Rate{
		"commission.base":           tiers.Base,
		"commission.commercialOnly": tiers.CommercialOnly,
		"commission.partnerOnly":    tiers.PartnerOnly,
		"commission.both":           tiers.Both,
	} {
		if rate < 0 || rate > money.BasisPointScale {
			return fmt.Errorf("%s out of range: %d", name, rate)
		}
	}
	return nil
}
