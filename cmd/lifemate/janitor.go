package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lifemate/lifemate-go/pkg/memory"
)

func newJanitorCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "janitor",
		Short: "Run scheduled memory cleanup and serve /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())

			client, err := root.newClient(reg)
			if err != nil {
				return err
			}
			defer client.Close()

			deleted := promauto.With(reg).NewCounter(prometheus.CounterOpts{
				Name: "lifemate_memory_cleanup_deleted_total",
				Help: "Total number of memories deleted by cleanup",
			})
			janitor, err := client.NewJanitor(memory.WithDeletedCounter(deleted))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			serveErr := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			janitor.Start()
			fmt.Fprintf(cmd.OutOrStdout(), "janitor running, metrics on %s/metrics\n", addr)

			select {
			case <-ctx.Done():
			case err := <-serveErr:
				if err != nil {
					janitor.Stop()
					return fmt.Errorf("metrics server: %w", err)
				}
			}

			janitor.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "metrics listen address")
	return cmd
}
