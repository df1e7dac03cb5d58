package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func Main() {
	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "reelcut --input <video>",
		Short:        "Turn a talking-head video into a captioned short with image inserts",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runProcess,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("input", "", "Input video file")
	addCommonFlags(root.Flags())
	addProcessFlags(root.Flags())

	root.AddCommand(newResumeCmd(), newWatchCmd())
	return root
}
