package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cellar/internal/reviews"
	"github.com/roach88/cellar/internal/store"
)

// ReviewView is the output form of one review.
type ReviewView struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Rating      float64   `json:"rating"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReviewList is the output of review list.
type ReviewList struct {
	WineID  int64        `json:"wine_id"`
	Reviews []ReviewView `json:"reviews"`
}

// RenderText prints one row per review.
func (l ReviewList) RenderText(w io.Writer) error {
	if len(l.Reviews) == 0 {
		_, err := fmt.Fprintf(w, "no reviews for wine %d\n", l.WineID)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tRATING\tDATE\tDESCRIPTION")
	for _, r := range l.Reviews {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%s\n", r.Username, r.Rating, r.CreatedAt.Format(time.DateOnly), r.Description)
	}
	return tw.Flush()
}

func newReviewList(wineID int64, rows []store.ReviewRow) ReviewList {
	out := ReviewList{WineID: wineID, Reviews: make([]ReviewView, 0, len(rows))}
	for _, r := range rows {
		out.Reviews = append(out.Reviews, ReviewView{
			ID:          r.ID,
			Username:    r.Username,
			Rating:      r.Rating,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

// ReviewResult is the output of review add and review delete.
type ReviewResult struct {
	WineID        int64   `json:"wine_id"`
	Username      string  `json:"username"`
	Deleted       bool    `json:"deleted,omitempty"`
	AverageRating float64 `json:"average_rating"`
}

func (r ReviewResult) String() string {
	if r.Deleted {
		return fmt.Sprintf("deleted review by %s; wine %d now averages %.2f", r.Username, r.WineID, r.AverageRating)
	}
	return fmt.Sprintf("saved review by %s; wine %d now averages %.2f", r.Username, r.WineID, r.AverageRating)
}

// NewReviewCommand creates the review command group.
func NewReviewCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Manage wine reviews",
		Long: `Manage per-user wine reviews. Each user reviews a wine at most once; a
second review replaces the first. The wine's average rating is recalculated
after every change.`,
	}

	cmd.AddCommand(newReviewAddCommand(rootOpts))
	cmd.AddCommand(newReviewListCommand(rootOpts))
	cmd.AddCommand(newReviewDeleteCommand(rootOpts))
	return cmd
}

func newReviewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <wine-id> <username> <rating>",
		Short: "Add or replace a review",
		Long: fmt.Sprintf(`Add or replace a review. Ratings run from %g to %g; descriptions are
limited to %d characters.

Example:
  cellar review add 42 alice 4.5 -d "Bright acidity"`, reviews.MinRating, reviews.MaxRating, reviews.MaxDescription),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			wineID, err := parseWineID(args[0])
			if err != nil {
				return err
			}
			rating, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid rating", err)
			}

			return withSession(cmd, rootOpts, func(s *session) error {
				avg, err := s.reviewService().Submit(cmd.Context(), wineID, args[1], rating, description)
				if err != nil {
					return s.fail(ExitFailure, "review failed", err)
				}
				return s.out.Success(ReviewResult{WineID: wineID, Username: args[1], AverageRating: avg})
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "review text")
	return cmd
}

func newReviewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <wine-id>",
		Short: "List a wine's reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wineID, err := parseWineID(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, rootOpts, func(s *session) error {
				rows, err := s.reviewService().List(cmd.Context(), wineID)
				if err != nil {
					return s.fail(ExitFailure, "list reviews failed", err)
				}
				return s.out.Success(newReviewList(wineID, rows))
			})
		},
	}
}

func newReviewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <wine-id> <username>",
		Short: "Delete a user's review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wineID, err := parseWineID(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, rootOpts, func(s *session) error {
				ctx := cmd.Context()
				svc := s.reviewService()
				deleted, err := svc.Delete(ctx, wineID, args[1])
				if err != nil {
					return s.fail(ExitFailure, "delete review failed", err)
				}
				if !deleted {
					return s.fail(ExitFailure, "review not found",
						fmt.Errorf("%w: no review of wine %d by %s", errNotFound, wineID, args[1]))
				}

				w, _, err := s.cat.Get(ctx, wineID)
				if err != nil {
					return s.fail(ExitFailure, "lookup failed", err)
				}
				return s.out.Success(ReviewResult{
					WineID:        wineID,
					Username:      args[1],
					Deleted:       true,
					AverageRating: w.AverageRating(),
				})
			})
		},
	}
}

func (s *session) reviewService() *reviews.Service {
	return reviews.NewService(s.cat, s.store, reviews.WithLogger(s.log))
}

func parseWineID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid wine id", err)
	}
	return id, nil
}
