package ratelimit

import (
	"github.com/tech-arch1tect/edgeguard/config"
)

const (
	TierAuth    = "auth"
	TierUser    = "user"
	TierDefault = "default"
)

// Tier parameterizes a token bucket: Rate tokens per second refill up to Burst.
type Tier struct {
	Name  string  `json:"name" yaml:"name"`
	Rate  float64 `json:"rate" yaml:"rate"`
	Burst int     `json:"burst" yaml:"burst"`
}

func TiersFromConfig(cfg config.RateLimitConfig) map[string]Tier {
	return map[string]Tier{
		TierAuth:    {Name: TierAuth, Rate: cfg.AuthRate, Burst: cfg.AuthBurst},
		TierUser:    {Name: TierUser, Rate: cfg.UserRate, Burst: cfg.UserBurst},
		TierDefault: {Name: TierDefault, Rate: cfg.DefaultRate, Burst: cfg.DefaultBurst},
	}
}

func bucketKey(tier Tier, key string) string {
	return tier.Name + ":" + key
}
