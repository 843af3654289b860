package bootstrap

import (
	"context"
	"sync"

	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/infrastructure"
	"github.com/krobus00/bitstamp-client/internal/service/marketdata"
	"github.com/krobus00/bitstamp-client/internal/util"
	"github.com/spf13/cobra"
)

func StartMarketDataPoller(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, js, err := infrastructure.NewJetstream(config.Env.NatsJetstream)
	util.ContinueOrFatal(err)

	bitstamp := initBitstamp()

	tickerPollerService := marketdata.NewTickerPollerService(
		entity.ExchangeBitstamp,
		bitstamp,
		js,
		util.NewJetstreamPublisher(js),
		config.Env.MarketData,
	)

	publishers := []entity.Publisher{tickerPollerService}
	for _, v := range publishers {
		err = v.JetstreamEventInit(ctx)
		util.ContinueOrFatal(err)
	}

	var pollerWG sync.WaitGroup
	pollerWG.Add(1)
	go func() {
		defer pollerWG.Done()
		tickerPollerService.Run(ctx)
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"ticker poller": func(ctx context.Context) error {
			cancel()
			pollerWG.Wait()
			return nil
		},
		"nats connection": func(ctx context.Context) error {
			pollerWG.Wait()
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
