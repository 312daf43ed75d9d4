package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cellar/internal/catalogue"
	"github.com/roach88/cellar/internal/csvsource"
)

// ImportSummary is the output of import.
type ImportSummary struct {
	Read     int              `json:"read"`
	Added    int              `json:"added"`
	Rejected []RejectedRow    `json:"rejected,omitempty"`
	Failed   *FailedIngestion `json:"failed,omitempty"`
}

// RejectedRow is an input row that failed validation.
type RejectedRow struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// FailedIngestion describes the chunk that stopped an import.
type FailedIngestion struct {
	Chunk int    `json:"chunk"`
	Error string `json:"error"`
}

// RenderText prints the counts followed by one line per rejected row.
func (s ImportSummary) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "read %d, added %d, rejected %d\n", s.Read, s.Added, len(s.Rejected))
	for _, r := range s.Rejected {
		fmt.Fprintf(w, "  row %d: %s\n", r.Row, r.Error)
	}
	if s.Failed != nil {
		fmt.Fprintf(w, "ingestion stopped at chunk %d: %s\n", s.Failed.Chunk, s.Failed.Error)
	}
	return nil
}

func newImportSummary(res catalogue.ImportResult, err error) ImportSummary {
	out := ImportSummary{Read: res.Read, Added: res.Added}
	for _, r := range res.Rejected {
		out.Rejected = append(out.Rejected, RejectedRow{Row: r.Row, Error: r.Err.Error()})
	}
	var be *catalogue.BatchError
	if errors.As(err, &be) {
		out.Failed = &FailedIngestion{Chunk: be.Chunk, Error: be.Err.Error()}
	}
	return out
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import wines from a CSV file",
		Long: `Import wines from a CSV file.

Columns are title, variety, country, region, winery, color, vintage,
description, score, abv, price. A header row naming the columns may reorder
or omit them; title is required. Rows failing validation are reported and
skipped. A missing vintage is taken from a year in the title.

With --replace the file is read in full first, then replaces the whole
catalogue; an unreadable file leaves the catalogue untouched.

Exit codes:
  0 - all valid rows imported
  1 - ingestion failed part way (earlier chunks stay committed)
  2 - command error (unreadable file, bad flags)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open input", err)
			}
			defer f.Close()

			return withSession(cmd, rootOpts, func(s *session) error {
				ctx := cmd.Context()
				run := s.cat.Import
				if replace {
					run = s.cat.ImportReplace
				}

				s.out.VerboseLog("importing %s", args[0])
				res, err := run(ctx, csvsource.NewReader(f))
				var be *catalogue.BatchError
				switch {
				case err == nil, errors.As(err, &be):
				case catalogue.IsPersistenceError(err):
					return s.fail(ExitFailure, "import failed", err)
				default:
					return s.fail(ExitCommandError, "failed to read input", err)
				}

				if err := s.out.Success(newImportSummary(res, err)); err != nil {
					return err
				}
				if be != nil {
					return WrapExitError(ExitFailure, "import incomplete", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace every wine with the file's contents")
	return cmd
}

// Cleared is the output of clear.
type Cleared struct {
	Removed int `json:"removed"`
}

func (c Cleared) String() string { return fmt.Sprintf("removed %d wines", c.Removed) }

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every wine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to clear without --yes")
			}
			return withSession(cmd, rootOpts, func(s *session) error {
				ctx := cmd.Context()
				n, err := s.cat.GetCount(ctx, nil)
				if err != nil {
					return s.fail(ExitFailure, "count failed", err)
				}
				if err := s.cat.RemoveAll(ctx); err != nil {
					return s.fail(ExitFailure, "clear failed", err)
				}
				return s.out.Success(Cleared{Removed: n})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm removal")
	return cmd
}

// GeoLoaded is the output of geo load.
type GeoLoaded struct {
	Loaded int `json:"loaded"`
	Total  int `json:"total"`
}

func (g GeoLoaded) String() string {
	return fmt.Sprintf("loaded %d geolocations (%d stored)", g.Loaded, g.Total)
}

// NewGeoCommand creates the geo command group.
func NewGeoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Manage region geolocations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "load <file.csv>",
		Short: "Load name,latitude,longitude records",
		Long: `Load region coordinates from a CSV of name,latitude,longitude records.
Existing names are updated. Wines whose region matches a name report its
coordinates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open input", err)
			}
			defer f.Close()

			locs, err := csvsource.ReadGeolocations(f)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read input", err)
			}

			return withSession(cmd, rootOpts, func(s *session) error {
				ctx := cmd.Context()
				if err := s.store.PutGeolocations(ctx, locs); err != nil {
					return s.fail(ExitFailure, "geo load failed", err)
				}
				total, err := s.store.CountGeolocations(ctx)
				if err != nil {
					return s.fail(ExitFailure, "geo count failed", err)
				}
				return s.out.Success(GeoLoaded{Loaded: len(locs), Total: total})
			})
		},
	})

	return cmd
}
