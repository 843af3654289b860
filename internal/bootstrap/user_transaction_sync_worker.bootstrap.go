package bootstrap

import (
	"context"
	"sync"

	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/entity"
	"github.com/krobus00/bitstamp-client/internal/infrastructure"
	"github.com/krobus00/bitstamp-client/internal/repository"
	"github.com/krobus00/bitstamp-client/internal/service/usertransaction"
	"github.com/krobus00/bitstamp-client/internal/util"
	"github.com/spf13/cobra"
)

func StartUserTransactionSyncWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig := config.Env.Database[bitstampDatabaseName]
	db, err := infrastructure.NewPostgresConnection(ctx, dbConfig)
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, dbConfig.PingInterval)

	redisClient, err := infrastructure.NewRedisClient(ctx, config.Env.Redis[bitstampDatabaseName].CacheDSN)
	util.ContinueOrFatal(err)

	bitstamp := initBitstamp()
	util.ContinueOrFatal(bitstamp.ValidateCredentials())

	userTransactionRepo := repository.NewUserTransactionRepository(db)
	cursorStore := usertransaction.NewRedisCursorStore(redisClient)

	syncService := usertransaction.NewUserTransactionSyncService(
		entity.ExchangeBitstamp,
		bitstamp,
		userTransactionRepo,
		cursorStore,
		config.Env.UserTransactionSync,
	)

	var syncWG sync.WaitGroup
	syncWG.Add(1)
	go func() {
		defer syncWG.Done()
		syncService.Run(ctx)
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"user transaction sync": func(ctx context.Context) error {
			cancel()
			syncWG.Wait()
			return nil
		},
		"database": func(ctx context.Context) error {
			cancel()
			syncWG.Wait()
			return db.Close()
		},
		"redis": func(ctx context.Context) error {
			cancel()
			syncWG.Wait()
			return redisClient.Close()
		},
	})

	<-wait
}
