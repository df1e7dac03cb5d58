package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/pipeline"
)

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resume --input <video> --timeline <timeline.json>",
		Short:        "Re-render a video from an exported timeline without calling any backend",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runResume,
	}
	cmd.Flags().String("input", "", "Input video file")
	cmd.Flags().String("timeline", "", "Exported timeline.json")
	cmd.Flags().String("safe-zones", "", "Exported safe_zones.json (optional)")
	addCommonFlags(cmd.Flags())
	return cmd
}

func runResume(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	timeline, _ := cmd.Flags().GetString("timeline")
	zones, _ := cmd.Flags().GetString("safe-zones")
	if input == "" || timeline == "" {
		return errors.New("--input and --timeline are required")
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

	out, err := pipeline.Resume(ctx, s.cfg, timeline, zones)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Output)
	return nil
}
