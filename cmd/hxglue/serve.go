package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxglue/lib/config"
	"github.com/pthm/hxglue/lib/issuer"
	"github.com/pthm/hxglue/lib/metrics"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the demo server with the token endpoint and protected routes",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				root.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root.cfg, root.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	iss, err := newIssuer(cfg, store, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	app := newDemoApp(cfg, iss, log.Named("demo"))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.routes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("token_path", cfg.Token.Path),
			zap.String("store", cfg.Token.Store.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newIssuer(cfg *config.Config, store issuer.Store, log *zap.Logger) (*issuer.Issuer, error) {
	key := []byte(cfg.Token.Key)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token key: %w", err)
		}
		log.Warn("no token key configured, tokens will not survive a restart")
	}
	return issuer.New(key, store,
		issuer.WithHeader(cfg.Token.Header),
		issuer.WithField(cfg.Token.Field),
		issuer.WithTTL(cfg.Token.TTL),
		issuer.WithSensitive(cfg.Token.Sensitive),
		issuer.WithLogger(log),
	)
}

// newStore builds the nonce store named by token.store.kind. The returned
// func releases it.
func newStore(ctx context.Context, cfg *config.Config) (issuer.Store, func(), error) {
	switch cfg.Token.Store.Kind {
	case "memory":
		return issuer.NewMemoryStore(cfg.Token.TTL), func() {}, nil
	case "redis":
		rc := cfg.Token.Store.Redis
		rdb := redis.NewClient(&redis.Options{Addr: rc.Addr, DB: rc.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
		}
		return issuer.NewRedisStore(rdb, rc.Prefix), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store %q", cfg.Token.Store.Kind)
	}
}
