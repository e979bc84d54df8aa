package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/petrijr/advisa/internal/config"
	"github.com/petrijr/advisa/internal/engine"
	"github.com/petrijr/advisa/internal/httpapi"
	"github.com/petrijr/advisa/internal/logging"
	"github.com/petrijr/advisa/internal/metrics"
	"github.com/petrijr/advisa/internal/oracle"
	"github.com/petrijr/advisa/internal/persistence"
	"github.com/petrijr/advisa/internal/steps"
	"github.com/petrijr/advisa/pkg/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the advisor engine in server mode, exposing the thread API over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

		if cfg.OpenAI.APIKey == "" {
			return fmt.Errorf("no OpenAI API key configured (set openai.api_key or OPENAI_API_KEY)")
		}

		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		promObs := metrics.NewPrometheusObserver()
		registry := prometheus.NewRegistry()
		if err := promObs.Register(registry); err != nil {
			return err
		}

		graph, err := steps.BuildGraph(oracle.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
		if err != nil {
			return err
		}
		eng, err := engine.New(engine.Config{
			Graph:         graph,
			Store:         store,
			Observer:      api.NewCompositeObserver(api.NewLoggingObserver(logger), promObs),
			MaxIterations: cfg.Engine.MaxIterations,
			LeaseTTL:      time.Duration(cfg.Engine.LeaseTTLSeconds) * time.Second,
		})
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr: cfg.Server.Addr,
			Handler: httpapi.NewHandler(eng,
				httpapi.WithLogger(logger),
				httpapi.WithMetricsRegistry(registry),
			),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return err
		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown failed", "error", err)
				return srv.Close()
			}
		}
		return nil
	},
}

func openStore(cfg config.Config) (persistence.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := sql.Open("sqlite", cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := persistence.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		return persistence.NewRedisStore(client, ""), func() { _ = client.Close() }, nil
	default:
		return persistence.NewInMemoryStore(), func() {}, nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, overriding the config file")
}
