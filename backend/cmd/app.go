package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adwski/game-relay/backend/config"
	"github.com/adwski/game-relay/backend/metrics"
	httpServer "github.com/adwski/game-relay/backend/server/http"
	websocketServer "github.com/adwski/game-relay/backend/server/websocket"
	"github.com/adwski/game-relay/backend/service"
	store "github.com/adwski/game-relay/backend/storage/memory"
	sw "github.com/adwski/game-relay/backend/switch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc := service.NewService(service.Config{
		RoomStore: store.NewMemStore(),
		Switch:    sw.NewSwitch(&logger, m),
		Metrics:   m,
		Logger:    &logger,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:      &logger,
		Coordinator: svc,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:      &logger,
		RoomService: svc,
		WebSocket:   wsSrv,
		Metrics:     metrics.Handler(reg),
		ListenAddr:  cfg.ListenAddr(),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// coordinator outlives the server so sessions can be cleaned up on shutdown
	svcCtx, svcCancel := context.WithCancel(context.Background())
	svcWg := &sync.WaitGroup{}
	svcWg.Add(1)
	go svc.Run(svcCtx, svcWg)

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 1)
	)
	wg.Add(1)
	go httpSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
	wsSrv.Close()

	svcCancel()
	svcWg.Wait()
}
