package main

import (
	"fmt"
	"os"

	"codeberg.org/mutker/acclogger/internal/analysis"
	"codeberg.org/mutker/acclogger/internal/errors"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	var maxHz float64

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Summarize a recorded CSV log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.New().Wrap(errors.ErrFileOpen, err)
			}
			defer f.Close()

			l, err := analysis.Parse(f)
			if err != nil {
				return err
			}
			rep, err := analysis.Analyze(l, maxHz)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File: %s\n", args[0])
			fmt.Fprintf(out, "Samples: %d\n", rep.Samples)
			fmt.Fprintf(out, "Estimated fs: %.3f Hz (median dt = %.3f ms, Nyquist = %.3f Hz)\n",
				rep.RateHz, rep.MedianDtMs, rep.RateHz/2)

			t := newTable("Signal", "Mean", "Min", "Max", "RMS", "Peak Hz", "Peak amp")
			for _, ax := range rep.Axes {
				t.Row(ax.Name,
					fmt.Sprintf("%.4f", ax.Stats.Mean),
					fmt.Sprintf("%.4f", ax.Stats.Min),
					fmt.Sprintf("%.4f", ax.Stats.Max),
					fmt.Sprintf("%.4f", ax.Stats.RMS),
					fmt.Sprintf("%.2f", ax.PeakHz),
					fmt.Sprintf("%.4f", ax.PeakAm),
				)
			}
			fmt.Fprintln(out, t.String())

			return nil
		},
	}
	cmd.Flags().Float64Var(&maxHz, "max-freq", 50, "Upper bound for the peak search in Hz (0 for Nyquist)")

	return cmd
}
