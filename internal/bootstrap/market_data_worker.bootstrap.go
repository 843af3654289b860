package bootstrap

import (
	"context"

	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/infrastructure"
	"github.com/krobus00/bitstamp-client/internal/repository"
	"github.com/krobus00/bitstamp-client/internal/service/marketdata"
	"github.com/krobus00/bitstamp-client/internal/util"
	"github.com/spf13/cobra"
)

func StartMarketDataWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig := config.Env.Database[bitstampDatabaseName]
	db, err := infrastructure.NewPostgresConnection(ctx, dbConfig)
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, dbConfig.PingInterval)

	nc, js, err := infrastructure.NewJetstream(config.Env.NatsJetstream)
	util.ContinueOrFatal(err)

	marketTickerRepo := repository.NewMarketTickerRepository(db)

	tickerWorkerService := marketdata.NewTickerWorkerService(
		js,
		util.NewJetstreamPublisher(js),
		marketTickerRepo,
		config.Env.NatsJetstream.TimeoutHandler,
		config.Env.NatsJetstream.MaxRetries,
	)

	subscribers := []entity.Subscriber{tickerWorkerService}
	for _, v := range subscribers {
		err = v.JetstreamEventSubscribe(ctx)
		util.ContinueOrFatal(err)
	}

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"database": func(ctx context.Context) error {
			cancel()
			return db.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
