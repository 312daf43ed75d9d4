package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cellar/internal/stats"
)

// StatsView is the output of stats.
type StatsView struct {
	Count int `json:"count"`
	stats.Snapshot
}

// RenderText prints the ranges and the size of each distinct set. With
// verbose output enabled the sets themselves are listed.
func (v StatsView) RenderText(w io.Writer) error {
	return v.render(w, false)
}

func (v StatsView) render(w io.Writer, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "wines:\t%d\n", v.Count)
	fmt.Fprintf(tw, "vintage:\t%s\n", formatRange(v.Vintage.HasMin, v.Vintage.HasMax, v.Vintage.Min, v.Vintage.Max))
	fmt.Fprintf(tw, "score:\t%s\n", formatRange(v.Score.HasMin, v.Score.HasMax, v.Score.Min, v.Score.Max))
	fmt.Fprintf(tw, "abv:\t%s\n", formatRange(v.ABV.HasMin, v.ABV.HasMax, v.ABV.Min, v.ABV.Max))
	fmt.Fprintf(tw, "price:\t%s\n", formatRange(v.Price.HasMin, v.Price.HasMax, v.Price.Min, v.Price.Max))

	sets := []struct {
		name   string
		values []string
	}{
		{"titles", v.Titles},
		{"countries", v.Countries},
		{"wineries", v.Wineries},
		{"colors", v.Colors},
	}
	for _, s := range sets {
		if verbose {
			fmt.Fprintf(tw, "%s:\t%d\t%s\n", s.name, len(s.values), strings.Join(s.values, ", "))
			continue
		}
		fmt.Fprintf(tw, "%s:\t%d\n", s.name, len(s.values))
	}
	return tw.Flush()
}

func formatRange[T any](hasMin, hasMax bool, lo, hi T) string {
	bound := func(ok bool, v T) string {
		if !ok {
			return "-"
		}
		return fmt.Sprint(v)
	}
	return bound(hasMin, lo) + " .. " + bound(hasMax, hi)
}

// verboseStats renders StatsView with the distinct sets listed.
type verboseStats struct{ StatsView }

func (v verboseStats) RenderText(w io.Writer) error {
	return v.render(w, true)
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalogue statistics",
		Long: `Show the vintage, score, ABV and price ranges of the catalogue and its
distinct titles, countries, wineries and colors. Unknown vintages (0) do not
count toward the minimum.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				n, err := s.cat.GetCount(cmd.Context(), nil)
				if err != nil {
					return s.fail(ExitFailure, "count failed", err)
				}
				view := StatsView{Count: n, Snapshot: s.cat.Stats()}
				if rootOpts.Verbose && rootOpts.Format != "json" {
					return s.out.Success(verboseStats{view})
				}
				return s.out.Success(view)
			})
		},
	}
}
