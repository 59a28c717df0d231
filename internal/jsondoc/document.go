// Package jsondoc exposes a JSON document as an observable property target.
//
// Properties are addressed by gjson paths ("name", "address.city",
// "tags.1") and written with sjson, so a controller can record edits to
// arbitrary nested fields without a schema.
package jsondoc

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/undokit/internal/history"
	"github.com/dshills/undokit/internal/observable"
)

// ErrInvalidJSON is returned when a document cannot be parsed.
var ErrInvalidJSON = errors.New("invalid JSON")

var _ history.ObservableTarget = (*Document)(nil)

// Document is a mutable JSON document.
type Document struct {
	mu   sync.RWMutex
	raw  []byte
	feed observable.Feed[history.PropertyChange]
}

// New returns an empty object document.
func New() *Document {
	return &Document{raw: []byte(`{}`)}
}

// Parse validates data and returns a document holding a copy of it.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return &Document{raw: append([]byte(nil), data...)}, nil
}

// GetProperty returns the value at path, or nil if nothing is there.
// Numbers come back as float64, objects as map[string]any and arrays as []any.
func (d *Document) GetProperty(path string) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lookup(d.raw, path), nil
}

// SetProperty writes value at path, creating intermediate objects as needed.
// A nil value deletes the path. Subscribers are notified after the write
// unless the stored value did not change.
func (d *Document) SetProperty(path string, value any) error {
	if path == "" {
		return errors.New("empty path")
	}
	norm, err := normalize(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	d.mu.Lock()
	old := lookup(d.raw, path)
	if reflect.DeepEqual(old, norm) {
		d.mu.Unlock()
		return nil
	}

	var raw []byte
	if norm == nil {
		raw, err = sjson.DeleteBytes(d.raw, path)
	} else {
		raw, err = sjson.SetBytes(d.raw, path, norm)
	}
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("write %s: %w", path, err)
	}
	d.raw = raw
	d.mu.Unlock()

	d.feed.Publish(history.PropertyChange{Property: path, Old: old, New: norm})
	return nil
}

// Observe subscribes handler to every write.
func (d *Document) Observe(handler func(history.PropertyChange)) history.Subscription {
	return d.feed.Subscribe(handler)
}

// Bytes returns a copy of the document.
func (d *Document) Bytes() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]byte(nil), d.raw...)
}

// Pretty returns the document indented for humans.
func (d *Document) Pretty() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return pretty.Pretty(d.raw)
}

func (d *Document) String() string {
	return string(d.Bytes())
}

func lookup(raw []byte, path string) any {
	r := gjson.GetBytes(raw, path)
	if !r.Exists() {
		return nil
	}
	return r.Value()
}

// normalize round-trips v through JSON so stored and read values compare equal.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := sjson.SetBytes([]byte(`{}`), "v", v)
	if err != nil {
		return nil, err
	}
	return gjson.GetBytes(raw, "v").Value(), nil
}
