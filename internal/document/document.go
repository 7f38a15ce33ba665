// Package document is the demo document served by viewsync: a titled pad
// of drawables loaded from YAML. It renders snapshots, answers menu
// queries and executes Set<Attr>(value) expressions sent by peers.
package document

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/viewsync/internal/canon"
	"github.com/roach88/viewsync/internal/engine"
	"github.com/roach88/viewsync/internal/menu"
)

// PadID is the id peers use for the document pad itself.
const PadID = engine.CanvasID

// Object is one drawable of the document.
type Object struct {
	ID    string            `yaml:"id"`
	Kind  string            `yaml:"kind"`
	Title string            `yaml:"title"`
	Attrs map[string]string `yaml:"attrs"`
}

// Spec is the YAML form of a document.
type Spec struct {
	Title   string    `yaml:"title"`
	Width   int       `yaml:"width"`
	Height  int       `yaml:"height"`
	Objects []*Object `yaml:"objects"`
}

// Document is safe for concurrent use. Every mutation bumps Version.
type Document struct {
	mu      sync.Mutex
	spec    Spec
	index   map[string]*Object
	version uint64
}

//go:embed demo.yaml
var demoYAML []byte

// Demo returns a fresh copy of the built-in demo document.
func Demo() (*Document, error) {
	return Parse(demoYAML)
}

// ErrUnknownExpression is returned for expressions Execute cannot apply.
var ErrUnknownExpression = errors.New("unsupported expression")

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return New(spec)
}

// Load reads and parses a YAML document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	return Parse(data)
}

// New builds a document at version 1. Object ids must be unique, non-empty
// and free of '#' and ':'.
func New(spec Spec) (*Document, error) {
	index := make(map[string]*Object, len(spec.Objects))
	for i, obj := range spec.Objects {
		if obj == nil || obj.ID == "" {
			return nil, fmt.Errorf("object %d: missing id", i)
		}
		if strings.ContainsAny(obj.ID, "#:") || obj.ID == PadID {
			return nil, fmt.Errorf("object %d: invalid id %q", i, obj.ID)
		}
		if _, dup := index[obj.ID]; dup {
			return nil, fmt.Errorf("object %d: duplicate id %q", i, obj.ID)
		}
		if obj.Attrs == nil {
			obj.Attrs = map[string]string{}
		}
		index[obj.ID] = obj
	}
	return &Document{spec: spec, index: index, version: 1}, nil
}

// Version returns the current document version.
func (d *Document) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Touch marks the document modified and returns the new version.
func (d *Document) Touch() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version++
	return d.version
}

// Title returns the document title.
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spec.Title
}

// RenderSnapshot implements engine.SnapshotProducer: canonical JSON of the
// pad and every object.
func (d *Document) RenderSnapshot() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	objects := make([]any, len(d.spec.Objects))
	for i, obj := range d.spec.Objects {
		attrs := make(map[string]any, len(obj.Attrs))
		for k, v := range obj.Attrs {
			attrs[k] = v
		}
		objects[i] = map[string]any{
			"id":    obj.ID,
			"kind":  obj.Kind,
			"title": obj.Title,
			"attrs": attrs,
		}
	}

	b, err := canon.Marshal(map[string]any{
		"pad":     PadID,
		"title":   d.spec.Title,
		"width":   d.spec.Width,
		"height":  d.spec.Height,
		"version": d.version,
		"objects": objects,
	})
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return string(b), nil
}

// FindDrawable implements engine.DrawableLookup.
func (d *Document) FindDrawable(id string) (engine.Drawable, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return &drawable{doc: d, obj: obj}, true
}

// Attr returns an attribute of object id.
func (d *Document) Attr(id, name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.index[id]
	if !ok {
		return "", false
	}
	v, ok := obj.Attrs[name]
	return v, ok
}

type drawable struct {
	doc *Document
	obj *Object
}

// PopulateMenu lists SetTitle and one setter per attribute. Boolean
// attributes become toggles.
func (dr *drawable) PopulateMenu(items *menu.Items) {
	dr.doc.mu.Lock()
	defer dr.doc.mu.Unlock()

	items.Add("SetTitle", fmt.Sprintf("SetTitle(%s)", strconv.Quote(dr.obj.Title)))

	names := make([]string, 0, len(dr.obj.Attrs))
	for name := range dr.obj.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := dr.obj.Attrs[name]
		if b, err := strconv.ParseBool(value); err == nil {
			items.AddChecked(name, fmt.Sprintf("Set%s(%t)", name, !b), b)
			continue
		}
		items.Add("Set"+name, fmt.Sprintf("Set%s(%s)", name, value))
	}
}

// Execute applies Set<Name>(value). SetTitle changes the title; any other
// setter changes or adds an attribute.
func (dr *drawable) Execute(expr string) error {
	name, value, err := parseSetter(expr)
	if err != nil {
		return err
	}

	dr.doc.mu.Lock()
	defer dr.doc.mu.Unlock()

	if name == "Title" {
		dr.obj.Title = value
	} else {
		dr.obj.Attrs[name] = value
	}
	dr.doc.version++
	return nil
}

// parseSetter splits `SetName(value)`. Quoted values are unquoted.
func parseSetter(expr string) (name, value string, err error) {
	expr = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(expr), ";"))
	rest, ok := strings.CutPrefix(expr, "Set")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownExpression, expr)
	}
	open := strings.IndexByte(rest, '(')
	if open <= 0 || !strings.HasSuffix(rest, ")") {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownExpression, expr)
	}

	name = rest[:open]
	value = strings.TrimSpace(rest[open+1 : len(rest)-1])
	if strings.HasPrefix(value, `"`) {
		unq, err := strconv.Unquote(value)
		if err != nil {
			return "", "", fmt.Errorf("%w: bad string in %q", ErrUnknownExpression, expr)
		}
		value = unq
	}
	return name, value, nil
}
