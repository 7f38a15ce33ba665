// Package menu holds the context-menu model answered to GETMENU queries.
package menu

import (
	"github.com/roach88/viewsync/internal/canon"
)

// Item is one entry of a drawable's context menu.
type Item struct {
	Name    string // label shown to the user
	Exec    string // expression sent back with OBJEXEC when chosen
	Checked *bool  // nil for plain items
}

// CanonicalValue implements canon.Valuer.
func (it Item) CanonicalValue() any {
	m := map[string]any{
		"n": it.Name,
		"e": it.Exec,
	}
	if it.Checked != nil {
		m["chk"] = *it.Checked
	}
	return m
}

// Items collects the menu of a single drawable.
type Items struct {
	ID    string
	items []Item
}

// NewItems creates an empty menu for the drawable with the given id.
func NewItems(id string) *Items {
	return &Items{ID: id}
}

// Add appends a plain entry.
func (m *Items) Add(name, exec string) {
	m.items = append(m.items, Item{Name: name, Exec: exec})
}

// AddChecked appends a toggle entry.
func (m *Items) AddChecked(name, exec string, checked bool) {
	c := checked
	m.items = append(m.items, Item{Name: name, Exec: exec, Checked: &c})
}

// Len returns the number of entries.
func (m *Items) Len() int { return len(m.items) }

// All returns a copy of the entries in insertion order.
func (m *Items) All() []Item {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// ProduceJSON renders the menu as canonical JSON.
func (m *Items) ProduceJSON() (string, error) {
	entries := make([]any, len(m.items))
	for i, it := range m.items {
		entries[i] = it
	}
	b, err := canon.Marshal(map[string]any{
		"id":    m.ID,
		"items": entries,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
