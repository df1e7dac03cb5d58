package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/pipeline"
)

const runTimeout = 3 * time.Hour

func runProcess(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		return errors.New("--input is required")
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if s.cfg.InputMP4, err = filepath.Abs(input); err != nil {
		return err
	}

	ctx, cancel := signalContext(runTimeout)
	defer cancel()

	out, err := pipeline.Run(ctx, s.cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Output)
	return nil
}

// signalContext is cancelled on SIGINT/SIGTERM or after timeout.
func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
