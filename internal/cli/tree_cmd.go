package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/obcms/workledger/internal/cli/formatter"
	"github.com/obcms/workledger/internal/domain"
)

func newTreeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Manage the work breakdown tree",
	}

	cmd.AddCommand(
		newTreeAddCmd(app),
		newTreeShowCmd(app),
		newTreeMoveCmd(app),
		newTreeRemoveCmd(app),
		newTreeInspectCmd(app),
	)

	return cmd
}

func newTreeAddCmd(app *App) *cobra.Command {
	var title, workType, parentID, priority, budgetStr string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Attach a new work item",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := &domain.WorkItem{
				WorkType:              domain.WorkType(workType),
				Title:                 title,
				Priority:              domain.Priority(priority),
				AutoCalculateProgress: true,
				Tenant:                app.Tenant,
			}
			if budgetStr != "" {
				amount, err := domain.ParseMoney(budgetStr)
				if err != nil {
					return err
				}
				w.AllocatedBudget = &amount
			}
			var parent *string
			if parentID != "" {
				parent = &parentID
			}
			if err := app.Tree.Attach(context.Background(), w, parent, app.Actor); err != nil {
				return err
			}
			fmt.Printf("Created %s %s (%s)\n", w.WorkType, formatter.Bold(w.Title), w.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Work item title")
	cmd.Flags().StringVar(&workType, "type", "task", "Work type (project|sub_project|activity|sub_activity|task|subtask)")
	cmd.Flags().StringVar(&parentID, "parent", "", "Parent work item ID (omit for a new root)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent|critical)")
	cmd.Flags().StringVar(&budgetStr, "budget", "", "Allocated budget in pesos")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newTreeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [root-id]",
		Short: "Render the tree (all roots, or one subtree)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var roots []*domain.WorkItem
			if len(args) == 1 {
				root, err := app.Tree.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				roots = append(roots, root)
			} else {
				var err error
				roots, err = app.Tree.Roots(ctx)
				if err != nil {
					return err
				}
			}

			for _, root := range roots {
				items, err := subtreeItems(ctx, app, root)
				if err != nil {
					return err
				}
				fmt.Print(formatter.RenderTree(items))
			}
			return nil
		},
	}
}

// subtreeItems flattens a subtree into display order using one descendants
// query per root.
func subtreeItems(ctx context.Context, app *App, root *domain.WorkItem) ([]formatter.TreeItem, error) {
	descendants, err := app.Tree.Descendants(ctx, root.ID)
	if err != nil {
		return nil, err
	}

	byParent := make(map[string][]*domain.WorkItem)
	for _, d := range descendants {
		if d.ParentID != nil {
			byParent[*d.ParentID] = append(byParent[*d.ParentID], d)
		}
	}
	for _, siblings := range byParent {
		sort.Slice(siblings, func(i, j int) bool { return siblings[i].SortKey < siblings[j].SortKey })
	}

	var items []formatter.TreeItem
	var walk func(w *domain.WorkItem, level int, isLast bool)
	walk = func(w *domain.WorkItem, level int, isLast bool) {
		detail := fmt.Sprintf("%d%%", w.Progress)
		if w.AllocatedBudget != nil {
			detail = fmt.Sprintf("%s  %d%%", w.AllocatedBudget, w.Progress)
		}
		items = append(items, formatter.TreeItem{
			Title:  w.Title,
			Level:  level,
			IsLast: isLast,
			Status: w.Status,
			Detail: detail,
		})
		children := byParent[w.ID]
		for i, c := range children {
			walk(c, level+1, i == len(children)-1)
		}
	}
	walk(root, 0, true)
	return items, nil
}

func newTreeMoveCmd(app *App) *cobra.Command {
	var newParent string

	cmd := &cobra.Command{
		Use:   "move <node-id>",
		Short: "Move a subtree under a new parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parent *string
			if newParent != "" {
				parent = &newParent
			}
			if err := app.Tree.Move(context.Background(), args[0], parent, app.Actor); err != nil {
				return err
			}
			fmt.Println("Moved.")
			return nil
		},
	}

	cmd.Flags().StringVar(&newParent, "parent", "", "New parent ID (omit to promote to root)")
	return cmd
}

func newTreeRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <node-id>",
		Short: "Soft-delete a subtree (refused while obligations are active)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tree.Detach(context.Background(), args[0], app.Actor); err != nil {
				return err
			}
			fmt.Println("Removed.")
			return nil
		},
	}
}

func newTreeInspectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <node-id>",
		Short: "Show one work item's fields and ancestry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w, err := app.Tree.GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(formatter.Header(w.Title))
			fmt.Printf("ID:        %s\n", w.ID)
			fmt.Printf("Type:      %s\n", w.WorkType)
			fmt.Printf("Status:    %s\n", w.Status)
			fmt.Printf("Priority:  %s\n", w.Priority)
			fmt.Printf("Progress:  %d%%\n", w.Progress)
			if w.AllocatedBudget != nil {
				fmt.Printf("Allocated: %s\n", w.AllocatedBudget)
			}
			fmt.Printf("Consumed:  %s\n", w.ConsumedBudget)

			ancestors, err := app.Tree.Ancestors(ctx, w.ID)
			if err != nil {
				return err
			}
			if len(ancestors) > 1 {
				fmt.Print("Ancestry:  ")
				for i, a := range ancestors {
					if i > 0 {
						fmt.Print(formatter.Dim(" → "))
					}
					fmt.Print(a.Title)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
