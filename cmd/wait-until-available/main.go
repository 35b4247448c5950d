package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gitlab.com/dirk.krummacker/contact-manager/internal/config"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > API_URL=http://localhost:8080 go run main.go -max-wait=2m
func main() {
	maxWait := flag.Duration("max-wait", 5*time.Minute, "give up after this time")
	configPath := flag.String("config", "", "optional configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("could not load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Level, "console")
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}
	defer logger.Sync()

	url := cfg.API.URL + "/api/contacts"
	client := &http.Client{Timeout: cfg.API.Timeout}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = *maxWait

	start := time.Now()
	probe := func() error {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		res, err := client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP error: %d", res.StatusCode)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Info("contacts service not available yet",
			zap.String("url", url), zap.Error(err), zap.Duration("retryIn", wait))
	}
	if err := backoff.RetryNotify(probe, policy, notify); err != nil {
		logger.Fatal("contacts service did not become available", zap.Error(err))
	}
	logger.Info("contacts service available", zap.String("url", url), zap.Duration("waited", time.Since(start)))
}
