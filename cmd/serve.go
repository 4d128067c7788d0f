package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"identityrecon/internal/handlers"
	"identityrecon/internal/metrics"
	"identityrecon/internal/service"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
}

func serve(parent context.Context) error {
	cfg, lg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer lg.Sync()
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.NewReconciliationService(db,
		service.WithLogger(lg.Named("service")),
		service.WithMetrics(metrics.New(reg)),
	)
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Service:  svc,
			DB:       db,
			Gatherer: reg,
			Logger:   lg.Named("http"),
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			lg.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http server shutdown failed", zap.Error(err))
		return err
	}
	lg.Info("goodbye")
	return nil
}
