package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index FILE...",
		Short: "Index files and print their statistics and summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.svc.IngestFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range docs {
				r := d.Result
				fmt.Fprintf(out, "%s (%s)\n", d.Name, d.ID)
				fmt.Fprintf(out, "  chunks=%d tokens=%d avg=%.1f strategy=%s language=%s time=%dms\n",
					r.Stats.TotalChunks, r.Stats.TotalTokens, r.Stats.AvgChunkSize, r.Strategy, r.Language, r.ProcessingTimeMs)
				if r.Summary != "" {
					fmt.Fprintf(out, "  %s\n", r.Summary)
				}
			}
			return nil
		},
	}
}
