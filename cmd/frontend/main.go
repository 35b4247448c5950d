package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/dirk.krummacker/contact-manager/internal/apiclient"
	"gitlab.com/dirk.krummacker/contact-manager/internal/config"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"gitlab.com/dirk.krummacker/contact-manager/internal/web"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > PORT=3000 API_URL=http://localhost:8080 GIN_MODE=release go run main.go
func main() {
	configPath := flag.String("config", "", "optional configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("could not load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	api := apiclient.New(cfg.API.URL, cfg.API.Timeout, logger)
	server := web.NewServer(ctx, api, logger, cfg.UI.SearchDebounce)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.SetupHttpRouter(cfg.Server.RequestLogging()),
	}
	go func() {
		logger.Info("starting contact manager",
			zap.String("port", cfg.Server.Port), zap.String("api", cfg.API.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down contact manager", zap.Int("sessions", server.Sessions()))
	// Ending the sessions closes their event streams, so that Shutdown does not wait for them.
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shut down", zap.Error(err))
	}
}
