package tui

import (
	"fmt"
	"io"

	"github.com/gafferworks/gaffer/internal/constants"
)

// ActionItem represents a single actionable command for the footer.
type ActionItem struct {
	RunID  string
	Action string // Full command, e.g. "gaffer abandon"
	Status constants.WorkflowStatus
}

// ActionFooter renders copy-paste commands for runs that need operator
// action. Autonomous recovery covers most states, so the footer is usually
// empty.
type ActionFooter struct {
	items []ActionItem
}

// NewActionFooter creates a footer from a status view. An item is produced
// when the state has a suggested action, or when autonomous operation has
// stopped on a live state and abandoning is the remaining move.
func NewActionFooter(view StatusView) *ActionFooter {
	var items []ActionItem

	action := SuggestedAction(view.Status)
	if action == "" && !view.CanContinue && !IsConcludedStatus(view.Status) {
		action = "gaffer abandon"
	}
	if action != "" {
		items = append(items, ActionItem{
			RunID:  view.RunID,
			Action: action,
			Status: view.Status,
		})
	}

	return &ActionFooter{items: items}
}

// HasItems returns true if there are action items to display.
func (f *ActionFooter) HasItems() bool {
	return len(f.items) > 0
}

// Items returns a copy of the action items. Returns nil if there are none.
func (f *ActionFooter) Items() []ActionItem {
	if len(f.items) == 0 {
		return nil
	}
	result := make([]ActionItem, len(f.items))
	copy(result, f.items)
	return result
}

// Render writes the footer to the writer. Outputs nothing if there are no
// action items. The command is bold when color is supported.
func (f *ActionFooter) Render(w io.Writer) error {
	if !f.HasItems() {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("write footer separator: %w", err)
	}

	for _, item := range f.items {
		if _, err := fmt.Fprintln(w, f.renderItem(item)); err != nil {
			return fmt.Errorf("write action item: %w", err)
		}
	}

	return nil
}

// RenderPlain writes the footer without any styling. Used for testing.
func (f *ActionFooter) RenderPlain(w io.Writer) error {
	if !f.HasItems() {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("write footer separator: %w", err)
	}

	for _, item := range f.items {
		if _, err := fmt.Fprintf(w, "Run: %s\n", item.Action); err != nil {
			return fmt.Errorf("write action item: %w", err)
		}
	}

	return nil
}

// ToJSON returns the action items in a format suitable for JSON output.
// Returns nil if there are no items.
func (f *ActionFooter) ToJSON() []map[string]string {
	if !f.HasItems() {
		return nil
	}

	result := make([]map[string]string, len(f.items))
	for i, item := range f.items {
		result[i] = map[string]string{
			"run_id": item.RunID,
			"action": item.Action,
		}
	}
	return result
}

// renderItem formats one action item, bolding the command portion.
func (f *ActionFooter) renderItem(item ActionItem) string {
	const prefix = "Run: "
	if !HasColorSupport() {
		return prefix + item.Action
	}
	return prefix + StyleBold.Render(item.Action)
}
