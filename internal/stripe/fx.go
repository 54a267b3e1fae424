// Package stripe assembles the emulator core: store, ids, factory, engine
// and webhook pipeline.
package stripe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/clock"
	"github.com/mdbarr/mock-services/internal/config"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
	"github.com/mdbarr/mock-services/internal/stripe/ident"
	"github.com/mdbarr/mock-services/internal/stripe/model"
	"github.com/mdbarr/mock-services/internal/stripe/store"
	"github.com/mdbarr/mock-services/internal/stripe/webhook"
)

var Module = fx.Module("stripe",
	fx.Provide(
		store.New,
		ident.New,
		provideRegistry,
		provideRegisterer,
		provideGatherer,
		provideFactory,
		provideMetrics,
		providePipeline,
		provideDispatcher,
		engine.New,
	),
	fx.Invoke(registerLifecycle),
)

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideRegisterer(r *prometheus.Registry) prometheus.Registerer { return r }

func provideGatherer(r *prometheus.Registry) prometheus.Gatherer { return r }

func provideFactory(st *store.Store, ids *ident.Generator, log *zap.Logger, cfg config.Config, clk clock.Clock) *model.Factory {
	factory := model.New(st, ids, log, cfg.APIVersion)
	factory.SetClock(func() int64 { return clk.Now().Unix() })
	return factory
}

func provideMetrics(reg prometheus.Registerer) *webhook.Metrics {
	return webhook.NewMetrics(reg)
}

func providePipeline(st *store.Store, log *zap.Logger, metrics *webhook.Metrics, cfg config.Config) *webhook.Pipeline {
	return webhook.NewPipeline(st, log, metrics, webhook.Options{
		Concurrency: cfg.Webhook.Concurrency,
		Delay:       cfg.Webhook.Delay,
		QueueSize:   cfg.Webhook.QueueSize,
		Timeout:     cfg.Webhook.Timeout,
	})
}

func provideDispatcher(p *webhook.Pipeline) engine.Dispatcher { return p }

func registerLifecycle(lc fx.Lifecycle, st *store.Store, pipeline *webhook.Pipeline, cfg config.Config, log *zap.Logger) {
	log = log.Named("stripe")
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if cfg.SnapshotPath != "" {
				if err := st.Load(cfg.SnapshotPath); err != nil {
					log.Warn("snapshot load failed", zap.String("path", cfg.SnapshotPath), zap.Error(err))
				}
			}
			pipeline.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			pipeline.Stop()
			if cfg.SnapshotPath != "" {
				if err := st.Save(cfg.SnapshotPath); err != nil {
					log.Warn("snapshot save failed", zap.String("path", cfg.SnapshotPath), zap.Error(err))
				}
			}
			return nil
		},
	})
}
