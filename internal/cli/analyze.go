package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pulsewatch/pulsewatch/internal/engine"
	"github.com/pulsewatch/pulsewatch/internal/social"
)

// analyzeParams holds the flags of the "analyze" subcommand.
type analyzeParams struct {
	sources       []string
	limit         int
	offset        int
	minConfidence float64
	language      string
	analyzer      string
	noCache       bool
}

// newAnalyzeCmd creates the "analyze" subcommand: a one-shot analysis of
// the given query, printed as JSON.
func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var params analyzeParams

	cmd := &cobra.Command{
		Use:   "analyze <query>",
		Short: "Run one analysis and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			result, err := eng.Analyze(cmd.Context(), engine.AnalyzeRequest{
				Query: social.SearchQuery{
					Query:         strings.Join(args, " "),
					DataSources:   params.sources,
					Limit:         params.limit,
					Offset:        params.offset,
					MinConfidence: params.minConfidence,
					Language:      params.language,
				},
				Analyzer: params.analyzer,
				NoCache:  params.noCache,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringSliceVar(&params.sources, "sources", nil, "data sources to query (default: all enabled)")
	cmd.Flags().IntVar(&params.limit, "limit", 0, "maximum posts to return (default 50)")
	cmd.Flags().IntVar(&params.offset, "offset", 0, "posts to skip before the page")
	cmd.Flags().Float64Var(&params.minConfidence, "min-confidence", 0, "bot-filter threshold in [0,1] (default 0.5)")
	cmd.Flags().StringVar(&params.language, "language", "", "BCP-47 language filter")
	cmd.Flags().StringVar(&params.analyzer, "analyzer", "", "sentiment analyzer (default from config)")
	cmd.Flags().BoolVar(&params.noCache, "no-cache", false, "bypass the result cache")
	return cmd
}
