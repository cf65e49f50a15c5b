package sandbox

import (
	"sort"

	"github.com/dop251/goja"
)

// EventData is the event data object (b) a snippet reads and writes.
type EventData interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Keys() []string
}

// DebugSink receives the messages a snippet passes to utag.DB.
type DebugSink interface {
	DB(message string)
}

// MapData is an in-memory EventData. The zero value is not usable; use
// NewMapData or a map literal.
type MapData map[string]any

// NewMapData copies src into a new MapData.
func NewMapData(src map[string]any) MapData {
	m := make(MapData, len(src))
	for k, v := range src {
		m[k] = v
	}
	return m
}

func (m MapData) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapData) Set(key string, value any) { m[key] = value }

func (m MapData) Delete(key string) { delete(m, key) }

// Keys returns keys in sorted order so enumeration inside snippets is stable.
func (m MapData) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dynamicData exposes EventData to the runtime as a plain-looking object.
type dynamicData struct {
	rt   *goja.Runtime
	data EventData
}

func (d *dynamicData) Get(key string) goja.Value {
	v, ok := d.data.Get(key)
	if !ok {
		return nil
	}
	return d.rt.ToValue(v)
}

func (d *dynamicData) Set(key string, val goja.Value) bool {
	d.data.Set(key, export(val))
	return true
}

func (d *dynamicData) Has(key string) bool {
	_, ok := d.data.Get(key)
	return ok
}

func (d *dynamicData) Delete(key string) bool {
	d.data.Delete(key)
	return true
}

func (d *dynamicData) Keys() []string {
	return d.data.Keys()
}

// export converts a runtime value to a Go value; undefined and null become nil.
func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
