package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/platform/metrics"
	"github.com/forPelevin/reelcut/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "watch --dir <inbox>",
		Short:        "Process every video dropped into a directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runWatch,
	}
	cmd.Flags().String("dir", "", "Directory to watch")
	cmd.Flags().Int("concurrency", 2, "Videos processed at once")
	cmd.Flags().String("metrics-addr", "", "Serve /metrics and /healthz on this address")
	addCommonFlags(cmd.Flags())
	addProcessFlags(cmd.Flags())
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		return errors.New("--dir is required")
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	met := metrics.New()
	s.cfg.Metrics = met

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.metricsAddr != "" {
		srv := &http.Server{Addr: s.metricsAddr, Handler: newRouter(met)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Error("metrics server error", "err", err)
			}
		}()
		s.log.Info("metrics server starting", "addr", s.metricsAddr)
		defer shutdown(srv, s.log)
	}

	w, err := watcher.New(dir, func(ctx context.Context, path string) error {
		cfg := s.cfg
		cfg.InputMP4 = path
		ctx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		out, err := pipeline.Run(ctx, cfg)
		if err != nil {
			return err
		}
		s.log.Info("video done", "input", path, "output", out.Output, "report", out.ReportPath)
		return nil
	}, s.log, s.concurrency)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRouter(met *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", met.Handler())
	return r
}

func shutdown(srv *http.Server, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("metrics server shutdown", "err", err)
	}
}
