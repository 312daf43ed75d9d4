package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/cellar/internal/filter"
	"github.com/roach88/cellar/internal/validate"
	"github.com/roach88/cellar/internal/wine"
)

// WineView is the output form of one wine.
type WineView struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Variety       string   `json:"variety,omitempty"`
	Country       string   `json:"country,omitempty"`
	Region        string   `json:"region,omitempty"`
	Winery        string   `json:"winery,omitempty"`
	Color         string   `json:"color,omitempty"`
	Vintage       int      `json:"vintage"`
	Description   string   `json:"description,omitempty"`
	ScorePercent  int      `json:"score_percent"`
	ABV           float64  `json:"abv"`
	Price         float64  `json:"price"`
	AverageRating float64  `json:"average_rating"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

func newWineView(w *wine.Wine) WineView {
	f := w.Fields()
	v := WineView{
		ID:            w.ID(),
		Title:         f.Title,
		Variety:       f.Variety,
		Country:       f.Country,
		Region:        f.Region,
		Winery:        f.Winery,
		Color:         f.Color,
		Vintage:       f.Vintage,
		Description:   f.Description,
		ScorePercent:  f.ScorePercent,
		ABV:           f.ABV,
		Price:         f.Price,
		AverageRating: f.AverageRating,
	}
	if g := w.Geo(); g != nil {
		v.Latitude, v.Longitude = &g.Latitude, &g.Longitude
	}
	return v
}

// RenderText prints the wine as aligned key/value lines.
func (v WineView) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%d\n", v.ID)
	fmt.Fprintf(tw, "title:\t%s\n", v.Title)
	fmt.Fprintf(tw, "variety:\t%s\n", v.Variety)
	fmt.Fprintf(tw, "country:\t%s\n", v.Country)
	fmt.Fprintf(tw, "region:\t%s\n", v.Region)
	fmt.Fprintf(tw, "winery:\t%s\n", v.Winery)
	fmt.Fprintf(tw, "color:\t%s\n", v.Color)
	fmt.Fprintf(tw, "vintage:\t%d\n", v.Vintage)
	fmt.Fprintf(tw, "score:\t%d\n", v.ScorePercent)
	fmt.Fprintf(tw, "abv:\t%g\n", v.ABV)
	fmt.Fprintf(tw, "price:\t%.2f\n", v.Price)
	fmt.Fprintf(tw, "rating:\t%.2f\n", v.AverageRating)
	if v.Latitude != nil {
		fmt.Fprintf(tw, "location:\t%g, %g\n", *v.Latitude, *v.Longitude)
	}
	if v.Description != "" {
		fmt.Fprintf(tw, "description:\t%s\n", v.Description)
	}
	return tw.Flush()
}

// WineList is the output of list.
type WineList struct {
	Wines []WineView `json:"wines"`
	Total int        `json:"total"`
	Begin int        `json:"begin"`
}

// RenderText prints one row per wine.
func (l WineList) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOUNTRY\tCOLOR\tVINTAGE\tSCORE\tPRICE")
	for _, v := range l.Wines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%.2f\n",
			v.ID, v.Title, v.Country, v.Color, v.Vintage, v.ScorePercent, v.Price)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d-%d of %d\n", l.Begin, l.Begin+len(l.Wines), l.Total)
	return err
}

// filterOptions are the shared filter flags of list and count.
type filterOptions struct {
	title, country, winery, color string
	vintageMin, vintageMax        int
	scoreMin, scoreMax            int
	abvMin, abvMax                float64
	priceMin, priceMax            float64
}

func (o *filterOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.title, "title", "", "title substring (case-insensitive)")
	fs.StringVar(&o.country, "country", "", "country substring")
	fs.StringVar(&o.winery, "winery", "", "winery substring")
	fs.StringVar(&o.color, "color", "", "color substring")
	fs.IntVar(&o.vintageMin, "vintage-min", 0, "minimum vintage")
	fs.IntVar(&o.vintageMax, "vintage-max", math.MaxInt32, "maximum vintage")
	fs.IntVar(&o.scoreMin, "score-min", 0, "minimum score percent")
	fs.IntVar(&o.scoreMax, "score-max", 100, "maximum score percent")
	fs.Float64Var(&o.abvMin, "abv-min", 0, "minimum ABV")
	fs.Float64Var(&o.abvMax, "abv-max", math.MaxFloat64, "maximum ABV")
	fs.Float64Var(&o.priceMin, "price-min", 0, "minimum price")
	fs.Float64Var(&o.priceMax, "price-max", math.MaxFloat64, "maximum price")
}

// spec builds the filter. A range applies only when one of its bounds was set.
func (o *filterOptions) spec(fs *pflag.FlagSet) *filter.Spec {
	changed := func(a, b string) bool { return fs.Changed(a) || fs.Changed(b) }

	opts := []filter.Option{
		filter.WithTitle(o.title),
		filter.WithCountry(o.country),
		filter.WithWinery(o.winery),
		filter.WithColor(o.color),
	}
	if changed("vintage-min", "vintage-max") {
		opts = append(opts, filter.WithVintage(o.vintageMin, o.vintageMax))
	}
	if changed("score-min", "score-max") {
		opts = append(opts, filter.WithScore(o.scoreMin, o.scoreMax))
	}
	if changed("abv-min", "abv-max") {
		opts = append(opts, filter.WithABV(o.abvMin, o.abvMax))
	}
	if changed("price-min", "price-max") {
		opts = append(opts, filter.WithPrice(o.priceMin, o.priceMax))
	}
	return filter.New(opts...)
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var fo filterOptions
	var begin, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List wines matching a filter",
		Long: `List wines in id order, one page at a time.

Text filters match case-insensitive substrings. A numeric range applies only
when at least one of its bounds is given.

Examples:
  cellar list --country france --score-min 90
  cellar list --begin 20 --limit 20 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := fo.spec(cmd.Flags())
			return withSession(cmd, rootOpts, func(s *session) error {
				ctx := cmd.Context()
				total, err := s.cat.GetCount(ctx, spec)
				if err != nil {
					return s.fail(ExitFailure, "count failed", err)
				}
				ws, err := s.cat.GetAllInRange(ctx, begin, begin+limit, spec)
				if err != nil {
					return s.fail(ExitFailure, "list failed", err)
				}

				out := WineList{Wines: make([]WineView, 0, len(ws)), Total: total, Begin: begin}
				for _, w := range ws {
					out.Wines = append(out.Wines, newWineView(w))
				}
				return s.out.Success(out)
			})
		},
	}

	fo.register(cmd.Flags())
	cmd.Flags().IntVar(&begin, "begin", 0, "zero-based position of the first wine")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum wines to show")

	return cmd
}

// CountResult is the output of count.
type CountResult struct {
	Count int `json:"count"`
}

func (r CountResult) String() string { return strconv.Itoa(r.Count) }

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	var fo filterOptions

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count wines matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := fo.spec(cmd.Flags())
			return withSession(cmd, rootOpts, func(s *session) error {
				n, err := s.cat.GetCount(cmd.Context(), spec)
				if err != nil {
					return s.fail(ExitFailure, "count failed", err)
				}
				return s.out.Success(CountResult{Count: n})
			})
		},
	}

	fo.register(cmd.Flags())
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var byTitle bool

	cmd := &cobra.Command{
		Use:   "get <id | title>",
		Short: "Show one wine",
		Long: `Show one wine by id, or by exact title with --title.

Examples:
  cellar get 42
  cellar get --title "Chateau Margaux 2015"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				w, ok, err := lookupWine(cmd, s, args[0], byTitle)
				if err != nil {
					return err
				}
				if !ok {
					return s.fail(ExitFailure, "wine not found", fmt.Errorf("%w: %s", errNotFound, args[0]))
				}
				return s.out.Success(newWineView(w))
			})
		},
	}

	cmd.Flags().BoolVar(&byTitle, "title", false, "treat the argument as an exact title")
	return cmd
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Change one field of a wine",
		Long: `Change one field of a stored wine. The change is written through to the
database immediately.

Fields: title, variety, country, region, winery, color, vintage, description,
score, abv, price. The average rating follows from reviews and cannot be set.

Examples:
  cellar set 42 price 18.50
  cellar set 42 color Rose`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := wine.ParseField(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid field", err)
			}

			return withSession(cmd, rootOpts, func(s *session) error {
				w, ok, err := lookupWine(cmd, s, args[0], false)
				if err != nil {
					return err
				}
				if !ok {
					return s.fail(ExitFailure, "wine not found", fmt.Errorf("%w: %s", errNotFound, args[0]))
				}

				if err := validate.ApplyField(cmd.Context(), w, field, args[2]); err != nil {
					return s.fail(ExitFailure, "update failed", err)
				}
				return s.out.Success(newWineView(w))
			})
		},
	}

	return cmd
}

// lookupWine resolves a command argument to a wine.
func lookupWine(cmd *cobra.Command, s *session, arg string, byTitle bool) (*wine.Wine, bool, error) {
	if byTitle {
		w, ok, err := s.cat.GetByExactTitle(cmd.Context(), arg)
		if err != nil {
			return nil, false, s.fail(ExitFailure, "lookup failed", err)
		}
		return w, ok, nil
	}

	id, err := parseWineID(arg)
	if err != nil {
		return nil, false, err
	}
	w, ok, err := s.cat.Get(cmd.Context(), id)
	if err != nil {
		return nil, false, s.fail(ExitFailure, "lookup failed", err)
	}
	return w, ok, nil
}
