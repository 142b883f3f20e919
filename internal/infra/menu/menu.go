// Package menu provides headless action handles: named items that hold the
// enabled flag the enablement engine applies to them.
package menu

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ahrav/fringeproc/internal/app/enablement"
	"github.com/ahrav/fringeproc/internal/config"
	"github.com/ahrav/fringeproc/internal/domain/uistate"
)

var _ enablement.Action = (*Item)(nil)

// Item is a menu entry. It is written by the UI goroutine and may be read
// from any goroutine.
type Item struct {
	name    string
	enabled atomic.Bool
}

// NewItem returns a disabled item.
func NewItem(name string) *Item { return &Item{name: name} }

// Name returns the item's name.
func (i *Item) Name() string { return i.name }

// SetEnabled implements enablement.Action.
func (i *Item) SetEnabled(enabled bool) { i.enabled.Store(enabled) }

// Enabled reports the last flag applied to the item.
func (i *Item) Enabled() bool { return i.enabled.Load() }

// Registrar accepts action registrations.
type Registrar interface {
	Register(ctx context.Context, action enablement.Action, constraint uistate.Set)
}

// Menu is an ordered set of items built from a catalog.
type Menu struct {
	items []*Item
	index map[string]*Item
}

// Build creates one item per catalog action and registers it with r.
func Build(ctx context.Context, c *config.Catalog, r Registrar) (*Menu, error) {
	m := &Menu{index: make(map[string]*Item, len(c.Actions))}
	for _, spec := range c.Actions {
		constraint, err := spec.Constraint()
		if err != nil {
			return nil, fmt.Errorf("building menu: %w", err)
		}
		if _, dup := m.index[spec.Name]; dup {
			return nil, fmt.Errorf("building menu: %w: %q", config.ErrDuplicateAction, spec.Name)
		}

		item := NewItem(spec.Name)
		m.items = append(m.items, item)
		m.index[spec.Name] = item
		r.Register(ctx, item, constraint)
	}
	return m, nil
}

// Item returns the item called name.
func (m *Menu) Item(name string) (*Item, bool) {
	i, ok := m.index[name]
	return i, ok
}

// IsEnabled reports whether the item called name exists and is enabled.
func (m *Menu) IsEnabled(name string) bool {
	i, ok := m.index[name]
	return ok && i.Enabled()
}

// Items returns the items in catalog order.
func (m *Menu) Items() []*Item {
	out := make([]*Item, len(m.items))
	copy(out, m.items)
	return out
}

// Enabled returns the names of the enabled items in catalog order.
func (m *Menu) Enabled() []string {
	var out []string
	for _, i := range m.items {
		if i.Enabled() {
			out = append(out, i.name)
		}
	}
	return out
}

// String renders one line per item, e.g. "[x] open".
func (m *Menu) String() string {
	var b strings.Builder
	for _, i := range m.items {
		mark := " "
		if i.Enabled() {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %s\n", mark, i.name)
	}
	return b.String()
}
