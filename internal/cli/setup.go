package cli

import (
	"time"

	"github.com/pulsewatch/pulsewatch/internal/config"
	"github.com/pulsewatch/pulsewatch/internal/engine"
	"github.com/pulsewatch/pulsewatch/internal/engine/cache"
	"github.com/pulsewatch/pulsewatch/internal/source"
)

// buildEngine assembles the cache, source registry and engine from cfg.
// A source that fails to install is skipped with a warning so one bad
// credential does not take the whole service down.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	store, err := cache.NewStore(cfg.Cache.MaxEntries)
	if err != nil {
		return nil, err
	}

	registry := source.NewRegistry()
	for _, sc := range cfg.Sources {
		if !sc.Enabled {
			continue
		}
		if err := registry.Add(sc); err != nil {
			logger.Warn().Err(err).Str("source", sc.Name).Msg("skipping source")
		}
	}

	return engine.New(store, registry, engine.Options{
		DefaultTTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		DefaultAnalyzer: cfg.Sentiment.DefaultAnalyzer,
		Logger:          config.ComponentLogger("engine"),
	}), nil
}
