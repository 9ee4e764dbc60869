package consensus

import (
	"github.com/google/btree"

	"github.com/TopiaNetwork/dacore/types"
)

const btreeDegree = 16

type viewEntry[V any] struct {
	view  types.ViewNumber
	value V
}

func (e *viewEntry[V]) Less(than btree.Item) bool {
	return e.view < than.(*viewEntry[V]).view
}

// viewMap is a map keyed by view number iterated in ascending view order.
type viewMap[V any] struct {
	tree *btree.BTree
}

func newViewMap[V any]() *viewMap[V] {
	return &viewMap[V]{tree: btree.New(btreeDegree)}
}

func (m *viewMap[V]) get(view types.ViewNumber) (V, bool) {
	item := m.tree.Get(&viewEntry[V]{view: view})
	if item == nil {
		var zero V
		return zero, false
	}
	return item.(*viewEntry[V]).value, true
}

func (m *viewMap[V]) has(view types.ViewNumber) bool {
	return m.tree.Has(&viewEntry[V]{view: view})
}

func (m *viewMap[V]) set(view types.ViewNumber, value V) {
	m.tree.ReplaceOrInsert(&viewEntry[V]{view: view, value: value})
}

func (m *viewMap[V]) len() int {
	return m.tree.Len()
}

func (m *viewMap[V]) first() (types.ViewNumber, V, bool) {
	item := m.tree.Min()
	if item == nil {
		var zero V
		return 0, zero, false
	}
	entry := item.(*viewEntry[V])
	return entry.view, entry.value, true
}

func (m *viewMap[V]) last() (types.ViewNumber, V, bool) {
	item := m.tree.Max()
	if item == nil {
		var zero V
		return 0, zero, false
	}
	entry := item.(*viewEntry[V])
	return entry.view, entry.value, true
}

// ascendRange calls fn for views in [from, to) until fn returns false.
func (m *viewMap[V]) ascendRange(from types.ViewNumber, to types.ViewNumber, fn func(types.ViewNumber, V) bool) {
	m.tree.AscendRange(&viewEntry[V]{view: from}, &viewEntry[V]{view: to}, func(item btree.Item) bool {
		entry := item.(*viewEntry[V])
		return fn(entry.view, entry.value)
	})
}

func (m *viewMap[V]) ascend(fn func(types.ViewNumber, V) bool) {
	m.tree.Ascend(func(item btree.Item) bool {
		entry := item.(*viewEntry[V])
		return fn(entry.view, entry.value)
	})
}

func (m *viewMap[V]) views() []types.ViewNumber {
	views := make([]types.ViewNumber, 0, m.tree.Len())
	m.ascend(func(view types.ViewNumber, _ V) bool {
		views = append(views, view)
		return true
	})
	return views
}

// truncateBelow drops every entry with a view lower than view and returns
// how many were dropped.
func (m *viewMap[V]) truncateBelow(view types.ViewNumber) int {
	removed := 0
	for {
		item := m.tree.Min()
		if item == nil || item.(*viewEntry[V]).view >= view {
			return removed
		}
		m.tree.DeleteMin()
		removed++
	}
}
