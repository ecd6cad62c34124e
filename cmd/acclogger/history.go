package main

import (
	"fmt"
	"strconv"
	"time"

	"codeberg.org/mutker/acclogger/internal/config"
	"codeberg.org/mutker/acclogger/internal/history"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished recording sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.WithConfigFile(*configPath))
			if err != nil {
				return err
			}

			hcfg := history.FromConfig(cfg.History)
			hcfg.Enabled = true
			svc, err := history.NewService(hcfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			entries, err := svc.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recorded sessions")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), historyTable(entries).String())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to show")

	return cmd
}

func historyTable(entries []history.Entry) *table.Table {
	t := newTable("Started", "File", "Interval", "Samples", "Skipped", "Duration")
	for _, e := range entries {
		t.Row(
			e.StartedAt.Local().Format(time.DateTime),
			e.File,
			strconv.FormatUint(uint64(e.IntervalMs), 10)+" ms",
			strconv.FormatUint(e.Samples, 10),
			strconv.FormatUint(e.Skipped, 10),
			e.Duration().Round(time.Second).String(),
		)
	}
	return t
}
