package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/riftcoach/insight/internal/domain/model"
	"github.com/riftcoach/insight/internal/domain/progress"
	"github.com/riftcoach/insight/internal/domain/types"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// printReport prints findings and recommendations for every analysed player.
func printReport(w io.Writer, r *model.InsightReport) {
	fmt.Fprintf(w, "\nMatch: %s  |  Schema: %s  |  Duration: %s\n",
		r.MatchID, r.SchemaVersion, clock(r.Duration))

	for _, p := range r.Players {
		fmt.Fprintf(w, "\n== %s (%s) ==\n", p.PlayerID, p.Role)

		if len(p.Recommendations) == 0 {
			fmt.Fprintln(w, "no recommendations")
		} else {
			table := newTable(w)
			table.Header("#", "CATEGORY", "PRIORITY", "MATCHES", "ADVICE")
			for _, rec := range p.Recommendations {
				table.Append(
					strconv.Itoa(rec.Rank),
					string(rec.Category),
					fmt.Sprintf("%.2f", rec.Priority),
					strconv.Itoa(rec.MatchCount),
					rec.Text,
				)
			}
			table.Render()
		}
		if len(p.Unsurfaced) > 0 {
			names := make([]string, len(p.Unsurfaced))
			for i, c := range p.Unsurfaced {
				names[i] = string(c)
			}
			fmt.Fprintf(w, "also seen: %s\n", strings.Join(names, ", "))
		}

		if len(p.Findings)+len(p.Strengths) > 0 {
			table := newTable(w)
			table.Header("AT", "KIND", "CATEGORY", "CODE", "SEVERITY", "CONF")
			for _, f := range p.Findings {
				table.Append(findingRow("mistake", f))
			}
			for _, f := range p.Strengths {
				table.Append(findingRow("strength", f))
			}
			table.Render()
		}

		for _, d := range p.Detectors {
			if d.Status != model.DetectorRan {
				fmt.Fprintf(w, "detector %s %s: %s\n", d.Name, d.Status, d.Reason)
			}
		}
	}
}

func findingRow(kind string, f model.Finding) []string {
	return []string{
		clock(f.Evidence.From),
		kind,
		string(f.Category),
		f.Code,
		f.Severity.String(),
		fmt.Sprintf("%.2f", f.Confidence),
	}
}

// printProgress prints the latest revision of every recorded match.
func printProgress(w io.Writer, rec model.PlayerProgressRecord) {
	entries := rec.Latest()
	fmt.Fprintf(w, "\nPlayer: %s  |  Matches: %d\n\n", rec.PlayerID, len(entries))

	header := []string{"PLAYED", "MATCH", "REV", "SCORE"}
	for _, c := range types.Categories {
		header = append(header, string(c))
	}
	table := newTable(w)
	table.Header(toAny(header)...)
	for _, e := range entries {
		row := []string{
			e.PlayedAt.UTC().Format(time.DateTime),
			e.MatchID,
			strconv.Itoa(e.Revision),
			fmt.Sprintf("%.1f", e.Score),
		}
		for _, c := range types.Categories {
			row = append(row, strconv.Itoa(e.CategoryCounts[c]))
		}
		table.Append(row)
	}
	table.Render()
}

// printTrends prints one row per trend.
func printTrends(w io.Writer, trends ...progress.Trend) {
	table := newTable(w)
	table.Header("CATEGORY", "WINDOW", "RECENT", "PREVIOUS", "DELTA", "TREND")
	for _, t := range trends {
		category := string(t.Category)
		if category == "" {
			category = "overall"
		}
		label := string(t.Label)
		if !t.Sufficient {
			label = "not enough matches"
		}
		table.Append(
			category,
			strconv.Itoa(t.Window),
			fmt.Sprintf("%.2f", t.Recent),
			fmt.Sprintf("%.2f", t.Previous),
			fmt.Sprintf("%+.2f", t.Delta),
			label,
		)
	}
	table.Render()
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
