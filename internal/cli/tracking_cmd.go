package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obcms/workledger/internal/cli/formatter"
	"github.com/obcms/workledger/internal/domain"
	"github.com/obcms/workledger/internal/service"
)

func newTrackingCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracking",
		Short: "Enable and inspect execution tracking for envelopes",
	}

	cmd.AddCommand(
		newTrackingEnableCmd(app),
		newTrackingBudgetCmd(app),
		newTrackingSyncCmd(app),
	)

	return cmd
}

func newTrackingEnableCmd(app *App) *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "enable <envelope-id>",
		Short: "Create the execution plan root for an envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := app.Tracking.EnableTracking(context.Background(), args[0],
				domain.StructureTemplate(template), app.Actor, app.Tenant)
			if err != nil {
				return err
			}
			fmt.Printf("Created execution plan %s (%s)\n", formatter.Bold(root.Title), root.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&template, "template", "activity", "Structure template (activity|milestone|budget)")
	return cmd
}

func newTrackingBudgetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "budget <root-id>",
		Short: "Render the budget allocation tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := app.Tracking.BudgetTree(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(formatter.Header("Budget Allocation"))
			fmt.Print(formatter.RenderTree(formatter.BudgetTreeItems(toBudgetNode(tree))))
			return nil
		},
	}
}

func toBudgetNode(n *service.BudgetTreeNode) formatter.BudgetNode {
	node := formatter.BudgetNode{
		Title:     n.Title,
		Status:    n.Status,
		Progress:  n.Progress,
		Allocated: n.AllocatedBudget,
		Consumed:  n.ConsumedBudget,
	}
	for _, c := range n.Children {
		node.Children = append(node.Children, toBudgetNode(c))
	}
	return node
}

func newTrackingSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <root-id>",
		Short: "Force a progress rollup of the execution plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			progress, err := app.Tracking.SyncProgress(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Root progress: %d%%\n", progress)
			return nil
		},
	}
}
