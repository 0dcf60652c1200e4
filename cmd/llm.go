package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/abhisek/wordmine/internal/llm"
	"github.com/abhisek/wordmine/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM request events recorded by the matcher",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		_, _, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		events, err := st.Events().RecentLLMRequests(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if purpose != "" {
			events = lo.Filter(events, func(e store.LLMRequestEvent, _ int) bool { return e.Purpose == purpose })
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM events found.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-16s  %-28s  %-6s  %-6s  %-7s  %-9s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "Cost", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 112))
		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			cost := "?"
			if c := llm.LookupCost(e.Model); c != nil {
				cost = formatCost(c.Cost(e.InputTokens, e.OutputTokens))
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-16s  %-28s  %-6d  %-6d  %-7d  %-9s  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.Purpose, 16),
				truncate(e.Model, 28),
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				cost,
				ok,
			)
		}
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize token usage and estimated cost of recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		_, _, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		events, err := st.Events().RecentLLMRequests(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		byModel := lo.GroupBy(events, func(e store.LLMRequestEvent) string { return e.Model })
		models := lo.Keys(byModel)
		sort.Strings(models)

		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %7s  %10s\n", "Model", "Calls", "Input", "Output", "Failed", "Cost")
		fmt.Fprintln(out, strings.Repeat("─", 84))

		var total float64
		var unknown []string
		for _, model := range models {
			evs := byModel[model]
			in := lo.SumBy(evs, func(e store.LLMRequestEvent) int { return e.InputTokens })
			outTok := lo.SumBy(evs, func(e store.LLMRequestEvent) int { return e.OutputTokens })
			failed := lo.CountBy(evs, func(e store.LLMRequestEvent) bool { return !e.Success })

			cost := "?"
			if c := llm.LookupCost(model); c != nil {
				usd := c.Cost(in, outTok)
				total += usd
				cost = formatCost(usd)
			} else {
				unknown = append(unknown, model)
			}
			fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %7d  %10s\n", truncate(model, 32), len(evs), in, outTok, failed, cost)
		}

		fmt.Fprintln(out, strings.Repeat("─", 84))
		label := "TOTAL"
		if len(unknown) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Fprintf(out, "%-32s  %6d  %10s  %10s  %7s  %10s\n", label, len(events), "", "", "", formatCost(total))
		if len(unknown) > 0 {
			fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. vocabulary-match)")
	llmStatsCmd.Flags().IntP("limit", "n", 1000, "Number of recent events to summarize")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
