package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	service "github.com/riftcoach/insight/internal/app"
	"github.com/riftcoach/insight/internal/domain/types"
)

type analyzeOptions struct {
	player string
	role   string
	elo    string
	schema string
	asJSON bool
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <match.json|->",
		Short: "Analyse a match file and record the player's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.player, "player", "p", "", "participant puuid to analyse (default: everyone)")
	cmd.Flags().StringVar(&opts.role, "role", "", "role override, requires --player")
	cmd.Flags().StringVar(&opts.elo, "elo", "", "elo band or ranked tier")
	cmd.Flags().StringVar(&opts.schema, "schema", "", "payload schema version (default: metadata.dataVersion)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the raw report as JSON")
	return cmd
}

func (o *analyzeOptions) request(payload []byte) (service.AnalyzeRequest, error) {
	req := service.AnalyzeRequest{Payload: payload, SchemaVersion: o.schema, PlayerID: o.player}
	if o.role != "" {
		if o.player == "" {
			return req, fmt.Errorf("--role requires --player")
		}
		r, err := types.ParseRole(o.role)
		if err != nil {
			return req, err
		}
		req.Role = r
	}
	if o.elo != "" {
		b, err := types.ParseEloBand(o.elo)
		if err != nil {
			return req, err
		}
		req.EloBand = b
	}
	return req, nil
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, path string) error {
	payload, err := readPayload(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	req, err := opts.request(payload)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	engine, err := openEngine(ctx, root)
	if err != nil {
		return err
	}
	defer engine.Stop()

	report, err := engine.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if err := engine.Flush(ctx); err != nil {
		return fmt.Errorf("record progress: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report)
	return nil
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read match: %w", err)
	}
	return b, nil
}
