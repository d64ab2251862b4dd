package provider

import (
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
)

// FromConfig builds a registry holding every enabled adapter. Each adapter
// gets its own pacer so one source's throttling never affects another.
// Adapters missing a required API key are skipped with a warning rather
// than failing startup.
func FromConfig(cfg config.ProvidersConfig, rl config.RateLimitConfig) *Registry {
	log := zap.L().With(zap.String("component", "provider"))
	reg := NewRegistry()

	for _, name := range cfg.Enabled {
		switch name {
		case "openstreetmap":
			osm := NewOSM(NewPacer(rl))
			if cfg.OSMBaseURL != "" {
				osm = NewOSM(NewPacer(rl), WithOSMBaseURL(cfg.OSMBaseURL))
			}
			reg.Register(osm)
		case "yellowpages":
			if cfg.YPAPIKey == "" {
				log.Warn("skipping adapter: missing api key", zap.String("adapter", name))
				continue
			}
			yp := NewYellowPages(cfg.YPAPIKey, NewPacer(rl))
			if cfg.YPBaseURL != "" {
				yp = NewYellowPages(cfg.YPAPIKey, NewPacer(rl), WithYPBaseURL(cfg.YPBaseURL))
			}
			reg.Register(yp)
		case "localdir":
			if cfg.LocalDirKey == "" {
				log.Warn("skipping adapter: missing api key", zap.String("adapter", name))
				continue
			}
			ld := NewLocalDir(cfg.LocalDirKey, NewPacer(rl))
			if cfg.LocalDirURL != "" {
				ld = NewLocalDir(cfg.LocalDirKey, NewPacer(rl), WithLocalDirBaseURL(cfg.LocalDirURL))
			}
			reg.Register(ld)
		default:
			log.Warn("skipping unknown adapter", zap.String("adapter", name))
		}
	}

	log.Info("providers configured", zap.Strings("adapters", reg.Names()))
	return reg
}
