package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/krobus00/bitstamp-client/internal/constant"
	httpHandler "github.com/krobus00/bitstamp-client/internal/handler/marketdata/http"
	"github.com/krobus00/bitstamp-client/internal/infrastructure"
	"github.com/krobus00/bitstamp-client/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func StartMarketDataGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bitstamp := initBitstamp()

	var shuttingDown atomic.Bool

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(config.ServiceName, healthpb.HealthCheckResponse_SERVING)

	if config.Env.Env == constant.DevelopmentEnvironment {
		reflection.Register(grpcServer)
	}

	grpcPort := fmt.Sprintf(":%s", config.Env.Port["market_data_gateway_grpc"])

	lis, err := net.Listen("tcp", grpcPort)
	util.ContinueOrFatal(err)

	go func() {
		_ = grpcServer.Serve(lis)
	}()
	logrus.Info(fmt.Sprintf("grpc server started on %s", grpcPort))

	marketDataHTTPHandler := httpHandler.NewMarketDataHTTPHandler(bitstamp, config.Env.APIKeys)
	httpMux := http.NewServeMux()
	marketDataHTTPHandler.Register(httpMux)
	infrastructure.RegisterHealthRoutes(httpMux, func(ctx context.Context) error {
		if shuttingDown.Load() {
			return errors.New("shutting down")
		}
		return nil
	})

	httpServer := infrastructure.NewHTTPServerWithConfig(infrastructure.GatewayHTTPConfig(), httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on %s", httpServer.Addr()))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"grpc": func(ctx context.Context) error {
			shuttingDown.Store(true)
			healthServer.Shutdown()
			grpcServer.GracefulStop()
			return nil
		},
		"http": func(ctx context.Context) error {
			shuttingDown.Store(true)
			return httpServer.Shutdown(ctx)
		},
	})

	<-wait
}
