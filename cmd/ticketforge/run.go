package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Strob0t/TicketForge/internal/adapter/corpus"
	"github.com/Strob0t/TicketForge/internal/domain/triage"
	"github.com/Strob0t/TicketForge/internal/service"
)

// runCmd triages one request offline with the heuristic capabilities and the
// file corpus. No database, broker or LLM is contacted.
func runCmd(load configLoader) *cobra.Command {
	var (
		knowledgePath string
		priorContext  string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "run <text>",
		Short: "Triage a single request offline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if knowledgePath == "" {
				knowledgePath = cfg.Knowledge.Path
			}

			kb := corpus.New(nil)
			if _, err := kb.Reload(cmd.Context(), corpus.FileLoader{Path: knowledgePath}); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; continuing without knowledge\n", err)
			}

			pipeline := cfg.Pipeline
			pipeline.Capabilities = "heuristic"
			caps, err := buildCapabilities(pipeline, nil, kb, nil)
			if err != nil {
				return err
			}
			coord, err := service.NewCoordinator(caps, service.PipelineOptionsFromConfig(pipeline))
			if err != nil {
				return err
			}

			req := triage.Request{Body: strings.Join(args, " "), PriorContext: priorContext}
			if err := req.Validate(); err != nil {
				return err
			}
			res := coord.Run(cmd.Context(), req)

			out := cmd.OutOrStdout()
			if asJSON || !isTerminal(out) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printResult(out, res)
		},
	}
	cmd.Flags().StringVar(&knowledgePath, "knowledge", "", "knowledge corpus YAML (default: knowledge.path from config)")
	cmd.Flags().StringVar(&priorContext, "context", "", "prior conversation context")
	cmd.Flags().BoolVar(&asJSON, "json", false, "always print JSON")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

func printResult(w io.Writer, res *triage.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Run\t%s\n", res.RunID)
	_, _ = fmt.Fprintf(tw, "Category\t%s\n", res.Category)
	_, _ = fmt.Fprintf(tw, "Priority\t%s\n", res.Priority)
	_, _ = fmt.Fprintf(tw, "Sentiment\t%s\n", res.Sentiment)
	_, _ = fmt.Fprintf(tw, "Confidence\t%.2f\n", res.SystemConfidence)
	_, _ = fmt.Fprintf(tw, "Verdict\t%s\n", res.Verdict.Label)
	_, _ = fmt.Fprintf(tw, "Sources\t%s\n", strings.Join(res.Sources, ", "))
	_, _ = fmt.Fprintln(tw)
	_, _ = fmt.Fprintln(tw, "STAGE\tSTATUS\tCONFIDENCE\tDURATION\tERROR")
	for _, e := range res.Trace.Entries {
		conf := "-"
		if e.Confidence != nil {
			conf = fmt.Sprintf("%.2f", *e.Confidence)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Stage, e.Status, conf, e.Duration, e.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", res.ResponseText)
	return err
}
