//go:build wireinject
// +build wireinject

package di

import (
	"github.com/VinothKuppanna/pigeon-routes/configs"
	"github.com/VinothKuppanna/pigeon-routes/pkg/data/model"
	"github.com/go-kit/log"
	"github.com/google/wire"
)

func InitApplication(config *configs.Config, logger log.Logger, publisher model.Publisher, metrics *Metrics) (*Application, error) {
	wire.Build(
		ProvideHTTPClient,
		ProvideRoutingEngine,
		ProvideRoutingService,
		ProvideApplication,
	)
	return &Application{}, nil
}
