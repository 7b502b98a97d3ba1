// Command queueworker is a demo CLI around the redisqueue package: push a
// document, run the consumer+reaper lifecycle, or inspect queue state.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/redisqueue/internal/codec"
	"github.com/fairyhunter13/redisqueue/internal/config"
	"github.com/fairyhunter13/redisqueue/internal/observability"
	"github.com/fairyhunter13/redisqueue/internal/storeadapter"
	"github.com/fairyhunter13/redisqueue/queue"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "queueworker",
		Short: "Demo consumer/producer CLI for the redisqueue job queue",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML queue-topology file (optional, overlays env defaults)")

	rootCmd.AddCommand(runCmd(), pushCmd(), statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the process config, honoring --config when set.
func loadConfig() (config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

// buildQueue wires a Config, Redis-backed Store, logger, and demo handler
// into a ready-to-use *queue.Queue[JobDoc].
func buildQueue(cfg config.Config) (*queue.Queue[JobDoc], *slog.Logger, error) {
	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	store := storeadapter.New(rdb)

	handler := &loggingHandler{log: logger}

	q, err := queue.New(queue.Config[JobDoc]{
		Name:           cfg.QueueName,
		Timeout:        cfg.Timeout,
		TTLStateInfo:   cfg.TTLStateInfo,
		LockTime:       cfg.LockTime,
		DiscardTime:    cfg.DiscardTime,
		ReaperInterval: cfg.ReaperInterval,
		Store:          store,
		DocCodec:       codec.NewJSON[JobDoc](),
		Handler:        handler,
		Recorder:       observability.PrometheusRecorder{},
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("op=buildQueue: %w", err)
	}
	handler.q = q
	return q, logger, nil
}
