package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obcms/workledger/internal/cli/formatter"
	"github.com/obcms/workledger/internal/domain"
)

func newDistributeCmd(app *App) *cobra.Command {
	var weightsStr string
	var allocsStr []string

	cmd := &cobra.Command{
		Use:   "distribute <parent-id> <equal|weighted|manual>",
		Short: "Split a parent's allocated budget across its children",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID := args[0]
			strategy := domain.DistributionStrategy(args[1])

			var weights []float64
			if weightsStr != "" {
				for _, part := range strings.Split(weightsStr, ",") {
					w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
					if err != nil {
						return fmt.Errorf("invalid weight %q: %w", part, err)
					}
					weights = append(weights, w)
				}
			}

			manual := make(map[string]domain.Money)
			for _, pair := range allocsStr {
				id, amountStr, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid allocation %q, expected child-id=amount", pair)
				}
				amount, err := domain.ParseMoney(amountStr)
				if err != nil {
					return err
				}
				manual[id] = amount
			}

			result, err := app.Distribution.Distribute(context.Background(), parentID, strategy, weights, manual, app.Actor)
			if err != nil {
				return err
			}

			fmt.Println(formatter.Header(fmt.Sprintf("%s distribution of %s", result.Strategy, result.Total)))
			for _, share := range result.Shares {
				fmt.Printf("%s  %s\n", formatter.Bold(share.Amount.String()), share.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&weightsStr, "weights", "", "Comma-separated weights for the weighted strategy, e.g. 0.5,0.3,0.2")
	cmd.Flags().StringArrayVar(&allocsStr, "alloc", nil, "child-id=amount pairs for the manual strategy (repeatable)")

	cmd.AddCommand(
		newDistributeShowCmd(app),
		newDistributeClearCmd(app),
		newDistributeValidateCmd(app),
	)

	return cmd
}

func newDistributeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <parent-id>",
		Short: "Show the current child allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := app.Distribution.CurrentDistribution(context.Background(), args[0])
			if err != nil {
				return err
			}
			for _, s := range shares {
				fmt.Printf("%s  %s\n", s.Amount, s.Title)
			}
			return nil
		},
	}
}

func newDistributeClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <parent-id>",
		Short: "Remove allocated budgets from all children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleared, err := app.Distribution.ClearDistribution(context.Background(), args[0], app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d allocations.\n", cleared)
			return nil
		},
	}
}

func newDistributeValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <parent-id>",
		Short: "Check that child allocations sum to the parent's budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Distribution.ValidateRollup(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Allocations are consistent.")
			return nil
		},
	}
}
