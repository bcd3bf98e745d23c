package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/dustin/go-humanize"
)

// Printer renders run events for a person watching the terminal
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Emit - one line per event, previews indented under their action
func (p *Printer) Emit(_ context.Context, e entities.RunEvent) {
	switch e.Type {
	case entities.EventStatus:
		fmt.Fprintf(p.out, "● %s\n", e.Message)
	case entities.EventActionStart:
		fmt.Fprintf(p.out, "\n→ %s\n", e.Message)
	case entities.EventAction:
		fmt.Fprintf(p.out, "  %s\n", e.Message)
		for _, item := range e.Preview {
			fmt.Fprintf(p.out, "    - %s\n", itemSummary(item))
		}
	case entities.EventWarning:
		fmt.Fprintf(p.out, "  ⚠ %s\n", e.Message)
	case entities.EventError:
		fmt.Fprintf(p.out, "  ✗ %s\n", e.Message)
	}
}

func printResults(out io.Writer, results entities.Results) {
	for i, item := range results {
		fmt.Fprintf(out, "%d. %s\n", i+1, item.Name)
		if details := itemDetails(item); details != "" {
			fmt.Fprintf(out, "   %s\n", details)
		}
		if item.URL != "" {
			fmt.Fprintf(out, "   %s\n", item.URL)
		}
	}
}

func itemSummary(item entities.ExtractedItem) string {
	if d := itemDetails(item); d != "" {
		return item.Name + " (" + d + ")"
	}
	return item.Name
}

func itemDetails(item entities.ExtractedItem) string {
	var parts []string
	if item.Price != nil {
		parts = append(parts, "₹"+humanize.Comma(*item.Price))
	}
	if item.Rating != nil {
		parts = append(parts, "★ "+item.RatingText())
	}
	return strings.Join(parts, " · ")
}

func printHistory(out io.Writer, runs []entities.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs yet.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%-8s  %-9s  %-14s  %2d results  %s\n",
			shortID(r.ID), r.Status, humanize.Time(r.StartedAt), len(r.Results), r.Input)
	}
}

func printPlan(out io.Writer, plan entities.Plan, guard interfaces.StepGuard) {
	for i, step := range plan {
		line := fmt.Sprintf("%d. %s", i+1, step.Action())
		if guard != nil {
			if risk, reason := guard.AssessStep(step); risk != entities.RiskLow {
				line += fmt.Sprintf(" [%s: %s]", risk, reason)
			}
		}
		fmt.Fprintln(out, line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ interfaces.EventSink = (*Printer)(nil)
