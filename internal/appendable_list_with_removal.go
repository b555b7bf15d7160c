// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import (
	"iter"
	"sync"
)

// AppendableListWithRemoval is a concurrency-safe list supporting append and
// removal-by-token without disturbing the iteration order of any iterator
// already in progress. Iterators see a stable snapshot of the entries present
// at the time iteration starts; entries appended or removed afterward do not
// affect that iteration.
type AppendableListWithRemoval[T any] struct {
	mu      sync.Mutex
	entries []*entry[T]
}

type entry[T any] struct {
	val     T
	removed bool
}

// NewAppendableListWithRemoval constructs an empty list.
func NewAppendableListWithRemoval[T any]() *AppendableListWithRemoval[T] {
	return &AppendableListWithRemoval[T]{}
}

// AppendEntry appends val to the list and returns a function that removes it.
// The returned function is idempotent; calling it more than once has no
// additional effect.
func (l *AppendableListWithRemoval[T]) AppendEntry(val T) func() {
	l.mu.Lock()
	e := &entry[T]{val: val}
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			e.removed = true
			l.compact()
		})
	}
}

// compact drops every removed entry so the backing slice
// does not grow without bound across long-lived append/remove churn. It must
// be called with l.mu held.
func (l *AppendableListWithRemoval[T]) compact() {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.removed {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

// Iterator returns a sequence over the values present in the list at the
// moment Iterator is called. Concurrent AppendEntry/removal calls do not
// affect an iteration already in progress.
func (l *AppendableListWithRemoval[T]) Iterator() iter.Seq[T] {
	l.mu.Lock()
	snapshot := make([]*entry[T], 0, len(l.entries))
	for _, e := range l.entries {
		if !e.removed {
			snapshot = append(snapshot, e)
		}
	}
	l.mu.Unlock()

	return func(yield func(T) bool) {
		for _, e := range snapshot {
			if !yield(e.val) {
				return
			}
		}
	}
}

// All is an alias for Iterator, used where range-over-func reads more
// naturally as "for x := range list.All()".
func (l *AppendableListWithRemoval[T]) All() iter.Seq[T] {
	return l.Iterator()
}
