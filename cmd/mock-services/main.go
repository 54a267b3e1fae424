package main

import (
	"go.uber.org/fx"

	"github.com/mdbarr/mock-services/internal/clock"
	"github.com/mdbarr/mock-services/internal/config"
	"github.com/mdbarr/mock-services/internal/observability"
	"github.com/mdbarr/mock-services/internal/seed"
	"github.com/mdbarr/mock-services/internal/server"
	"github.com/mdbarr/mock-services/internal/stripe"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		stripe.Module,
		seed.Module,
		server.Module,
	)

	app.Run()
}
