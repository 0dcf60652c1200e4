package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/wordmine/internal/gems"
	"github.com/abhisek/wordmine/internal/mastery"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Inspect spaced-repetition schedules",
}

var reviewsDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List a student's vocabulary items that are due for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, logger, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ledger := mastery.NewLedger(st.Gems(), cfg.Ledger, mastery.WithLogger(logger))
		now := time.Now()
		due, err := ledger.DueForReview(cmd.Context(), student, now, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(due) == 0 {
			fmt.Fprintf(out, "Nothing due for %s.\n", student)
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-9s  %-5s  %-8s  %-16s  %s\n",
			"Item", "Rarity", "Level", "Interval", "Due", "Status")
		fmt.Fprintln(out, strings.Repeat("─", 92))
		for _, r := range due {
			rs := r.ReviewState()
			fmt.Fprintf(out, "%-36s  %-9s  %-5d  %-8s  %-16s  %s\n",
				r.VocabularyItemID,
				gems.RarityForLevel(r.GemLevel),
				r.GemLevel,
				fmt.Sprintf("%dd", r.IntervalDays),
				r.NextReviewAt.Local().Format("2006-01-02 15:04"),
				rs.Status(now),
			)
		}
		return nil
	},
}

func init() {
	reviewsDueCmd.Flags().StringP("student", "s", "", "Student id")
	reviewsDueCmd.Flags().IntP("limit", "n", mastery.DefaultDueLimit, "Maximum items to show")
	_ = reviewsDueCmd.MarkFlagRequired("student")

	reviewsCmd.AddCommand(reviewsDueCmd)
}
