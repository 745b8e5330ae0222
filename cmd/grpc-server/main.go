package main

import (
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"kontribute/internal/ledger"
	"kontribute/pkg/logging"
	"kontribute/pkg/utils"
)

// grpc-server hosts an in-memory ledger story actor, optionally seeded from
// a JSON file, for local development against the gateway.
func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = logger.Sync() }()

	mem := ledger.NewMemory()
	if cfg.Ledger.Seed != "" {
		n, err := mem.LoadSeed(cfg.Ledger.Seed)
		if err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
		logger.Info("seeded ledger", zap.Int("stories", n), zap.String("file", cfg.Ledger.Seed))
	}

	listener, err := net.Listen("tcp", cfg.Ledger.Addr)
	if err != nil {
		logger.Fatal("grpc listen failed", zap.Error(err))
	}

	srv := ledger.NewServer(mem, logger)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("stopping ledger")
		srv.GracefulStop()
	}()

	logger.Info("gRPC ledger listening", zap.String("addr", cfg.Ledger.Addr))
	if err := srv.Serve(listener); err != nil {
		logger.Fatal("grpc server stopped", zap.Error(err))
	}
}
