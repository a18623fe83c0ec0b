// Command easeld runs the artifact streaming server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"easel/internal/artifact/events"
	"easel/internal/artifact/registry"
	"easel/internal/artifact/store"
	"easel/internal/orchestrator"
	"easel/internal/server"
	"easel/internal/shared/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "easeld",
		Short: "Artifact streaming server for chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("host", "localhost", "listen host")
	flags.Int("port", 8080, "listen port")
	flags.StringSlice("allowed-origins", nil, "CORS origins (empty allows all)")
	flags.Bool("debug", false, "enable debug mode")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Duration("cache-ttl", 30*time.Second, "artifact list cache TTL")
	flags.Int("cache-size", 256, "artifact list cache size")
	flags.String("config", "", "config file path")

	for _, name := range []string{"host", "port", "allowed-origins", "debug", "log-level", "cache-ttl", "cache-size"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	v.SetEnvPrefix("EASEL")
	v.AutomaticEnv()

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if path, _ := flags.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		}
		return nil
	}

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	logging.SetLevel(logging.ParseLevel(v.GetString("log-level")))
	logger := logging.NewComponentLogger("easeld")

	observer, err := store.NewPrometheusObserver("", nil)
	if err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}

	bus := events.NewBus()
	orch, err := orchestrator.New(
		registry.Default(),
		bus,
		orchestrator.CacheConfig{
			MaxSize: v.GetInt("cache-size"),
			TTL:     v.GetDuration("cache-ttl"),
		},
		orchestrator.WithLogger(logger),
		orchestrator.WithStoreObserver(observer),
	)
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	srv := server.New(server.Config{
		Host:           v.GetString("host"),
		Port:           v.GetInt("port"),
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
		Debug:          v.GetBool("debug"),
		ReadTimeout:    30 * time.Second,
	}, orch, bus)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(srv.Run)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
