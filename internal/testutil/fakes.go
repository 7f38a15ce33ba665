package testutil

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/viewsync/internal/engine"
	"github.com/roach88/viewsync/internal/menu"
)

// MemoryFiles is an engine.FileWriter keeping files in memory.
type MemoryFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	Err   error // returned by every WriteFile when set
}

// NewMemoryFiles creates an empty file set.
func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string][]byte)}
}

// WriteFile stores a copy of data under name.
func (m *MemoryFiles) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the content stored under name.
func (m *MemoryFiles) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

// Names returns the stored file names, sorted.
func (m *MemoryFiles) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrRender is the error Producer returns when Fail is set.
var ErrRender = errors.New("render failed")

// Producer is an engine.SnapshotProducer returning "snapshot-<n>" where n
// counts renders, or Payload when set.
type Producer struct {
	Payload string
	Fail    bool
	Renders int
}

// RenderSnapshot implements engine.SnapshotProducer.
func (p *Producer) RenderSnapshot() (string, error) {
	if p.Fail {
		return "", ErrRender
	}
	p.Renders++
	if p.Payload != "" {
		return p.Payload, nil
	}
	return fmt.Sprintf("snapshot-%d", p.Renders), nil
}

// Drawable is an engine.Drawable recording executed expressions.
type Drawable struct {
	Items [][2]string // name, exec
	Exprs []string
	Err   error
}

// PopulateMenu adds Items.
func (d *Drawable) PopulateMenu(items *menu.Items) {
	for _, it := range d.Items {
		items.Add(it[0], it[1])
	}
}

// Execute records expr, or returns Err.
func (d *Drawable) Execute(expr string) error {
	if d.Err != nil {
		return d.Err
	}
	d.Exprs = append(d.Exprs, expr)
	return nil
}

// Lookup is an engine.DrawableLookup over a map.
type Lookup map[string]*Drawable

// FindDrawable implements engine.DrawableLookup.
func (l Lookup) FindDrawable(id string) (engine.Drawable, bool) {
	d, ok := l[id]
	if !ok {
		return nil, false
	}
	return d, true
}

// Control is an engine.ProcessControl counting calls.
type Control struct {
	Terminated  int
	Interrupted int
}

func (c *Control) Terminate() { c.Terminated++ }
func (c *Control) Interrupt() { c.Interrupted++ }

// ExecLog collects ExecHook calls as "id:expr".
type ExecLog struct {
	Calls []string
}

// Hook returns the engine.ExecHook recording into the log.
func (l *ExecLog) Hook() engine.ExecHook {
	return func(id, expr string) {
		l.Calls = append(l.Calls, id+":"+expr)
	}
}

// String joins the recorded calls.
func (l *ExecLog) String() string {
	return strings.Join(l.Calls, ",")
}
