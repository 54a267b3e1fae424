package observability

import (
	"strings"

	"go.uber.org/fx"

	"github.com/mdbarr/mock-services/internal/config"
	"github.com/mdbarr/mock-services/internal/observability/logger"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
	),
)

func provideLoggerConfig(cfg config.Config) logger.Config {
	debug := strings.EqualFold(cfg.LogLevel, "debug")
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}
