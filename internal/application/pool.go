package application

import (
	"fmt"
	"sort"

	"github.com/ahrav/go-loom/internal/domain"
)

// DataPool is the mutable store of produced values for one execution
// run, keyed by binding identity. Each successful node execution inserts
// its outputs under the qualified "node.port" key and, for legacy
// auto-binding, under the bare port name. Entries are write-once: a
// later node may not overwrite an earlier node's output key.
//
// A pool may be forked to create a per-tick context layered over a base:
// the child resolves reads through its parent but writes only to its own
// layer, so base-layer values are shared read-only between sibling
// producer subtrees while tick values stay private.
//
// DataPool is exclusively owned by the single run (or tick) that created
// it and is not safe for concurrent mutation.
type DataPool struct {
	parent *DataPool
	values map[string]domain.DataValue
}

// NewDataPool creates an empty root pool for a fresh run.
func NewDataPool() *DataPool {
	return &DataPool{values: make(map[string]domain.DataValue)}
}

// Fork creates a child pool layered over p. Reads fall through to p;
// writes stay in the child.
func (p *DataPool) Fork() *DataPool {
	return &DataPool{parent: p, values: make(map[string]domain.DataValue)}
}

// Get resolves a key through the pool chain, nearest layer first.
func (p *DataPool) Get(key string) (domain.DataValue, bool) {
	for cur := p; cur != nil; cur = cur.parent {
		if v, ok := cur.values[key]; ok {
			return v, true
		}
	}
	return domain.DataValue{}, false
}

// Put inserts a value under key. Inserting a key that already resolves
// anywhere in the chain returns an error wrapping
// domain.ErrDuplicateValue; a valid schedule never triggers this.
func (p *DataPool) Put(key string, v domain.DataValue) error {
	if _, exists := p.Get(key); exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateValue, key)
	}
	p.values[key] = v
	return nil
}

// PutOutputs inserts every output of a node under its qualified binding
// key. When legacyAlias is set, each output is additionally duplicated
// under the bare port name so legacy name matching can find it; an alias
// collision in legacy mode is a consistency error, since two same-named
// outputs would make name bindings ambiguous.
func (p *DataPool) PutOutputs(nodeID string, outputs map[string]domain.DataValue, legacyAlias bool) error {
	// Insert in sorted port order so failures are deterministic.
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := p.Put(domain.BindingKey(nodeID, name), outputs[name]); err != nil {
			return err
		}
		if legacyAlias {
			if err := p.Put(name, outputs[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of entries in this layer and its ancestors.
func (p *DataPool) Len() int {
	n := 0
	for cur := p; cur != nil; cur = cur.parent {
		n += len(cur.values)
	}
	return n
}

// Snapshot flattens the pool chain into a plain map for introspection
// after a run. Nearer layers win, although by the write-once invariant
// the same key never appears in two layers.
func (p *DataPool) Snapshot() map[string]domain.DataValue {
	out := make(map[string]domain.DataValue, p.Len())
	var walk func(*DataPool)
	walk = func(cur *DataPool) {
		if cur == nil {
			return
		}
		walk(cur.parent)
		for k, v := range cur.values {
			out[k] = v
		}
	}
	walk(p)
	return out
}
