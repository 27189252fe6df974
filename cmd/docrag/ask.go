package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		question string
		asJSON   bool
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "ask -q QUESTION FILE...",
		Short: "Answer a question from the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.svc.IngestFiles(ctx, args); err != nil {
				return err
			}
			answers, err := a.svc.AskAll(ctx, question, nil)
			if err != nil {
				return err
			}
			if !all {
				answers = answers[:1]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(answers)
			}
			for _, ans := range answers {
				r := ans.Response
				fmt.Fprintf(out, "[%s] confidence=%.3f method=%s\n%s\n\n",
					ans.Document.Name, r.Confidence, r.Metadata.Method, r.Answer)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print answers as JSON")
	cmd.Flags().BoolVar(&all, "all", false, "print the answer from every file, best first")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}
