package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/obcms/workledger/internal/domain"
)

// TreeItem is a single row in an indented tree display.
type TreeItem struct {
	Title  string
	Level  int
	IsLast bool
	Status domain.WorkItemStatus
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
)

// RenderTree renders TreeItems as an indented tree using box-drawing
// connectors. Completed items get a green ✔ prefix, in-progress items an
// amber ▶ prefix, and detail badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type lineInfo struct {
		content string
		badge   string
	}

	lines := make([]lineInfo, len(items))
	maxContentWidth := 0

	for idx, item := range items {
		var prefix string
		if item.Level > 0 {
			for i := 1; i < item.Level; i++ {
				prefix += treePipe
			}
			if item.IsLast {
				prefix += treeCorner
			} else {
				prefix += treeBranch
			}
		}

		title := item.Title
		statusPrefix := ""
		switch item.Status {
		case domain.WorkItemCompleted:
			statusPrefix = StyleGreen.Render("✔ ")
			title = Dim(title)
		case domain.WorkItemInProgress:
			statusPrefix = StyleYellowBold.Render("▶ ")
			title = StyleYellowBold.Render(title)
		case domain.WorkItemAtRisk, domain.WorkItemBlocked:
			statusPrefix = StyleRed.Render("! ")
		}

		content := prefix + statusPrefix + title
		lines[idx].content = content

		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render(fmt.Sprintf("[ %s ]", item.Detail))
		}

		if w := lipgloss.Width(content); w > maxContentWidth {
			maxContentWidth = w
		}
	}

	var b strings.Builder
	for _, li := range lines {
		if li.badge != "" {
			pad := maxContentWidth - lipgloss.Width(li.content)
			if pad < 0 {
				pad = 0
			}
			b.WriteString(li.content + strings.Repeat(" ", pad) + "  " + li.badge + "\n")
		} else {
			b.WriteString(li.content + "\n")
		}
	}
	return b.String()
}

// BudgetTreeItems flattens a budget projection into renderable tree rows,
// one badge per node with allocated vs consumed and the variance.
func BudgetTreeItems(root BudgetNode) []TreeItem {
	var items []TreeItem
	var walk func(n BudgetNode, level int, isLast bool)
	walk = func(n BudgetNode, level int, isLast bool) {
		allocated := "—"
		if n.Allocated != nil {
			allocated = n.Allocated.String()
		}
		detail := fmt.Sprintf("%s / %s  %s%%",
			n.Consumed.String(), allocated, progressStr(n.Progress))
		items = append(items, TreeItem{
			Title:  n.Title,
			Level:  level,
			IsLast: isLast,
			Status: n.Status,
			Detail: detail,
		})
		for i, c := range n.Children {
			walk(c, level+1, i == len(n.Children)-1)
		}
	}
	walk(root, 0, true)
	return items
}

// BudgetNode is the formatter-side view of one budget tree node.
type BudgetNode struct {
	Title     string
	Status    domain.WorkItemStatus
	Progress  int
	Allocated *domain.Money
	Consumed  domain.Money
	Children  []BudgetNode
}

func progressStr(p int) string {
	return fmt.Sprintf("%d", p)
}
