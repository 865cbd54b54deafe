package vmem

import (
	"container/list"
	"sync"

	"github.com/sarchlab/coresim/request"
)

// Entry is one page-table-node slot: the physical frame a (level, index)
// key maps to. The walker uses the same Entry shape at every level of
// the radix tree, from the top-level root down to a leaf PTE.
type Entry struct {
	ASID  request.ASID
	Key   uint64
	Frame uint64
	Valid bool
}

// PageTable holds every address space's page-table nodes. It keeps the
// Insert/Remove/Find/Update shape of the teacher's flat one-level table,
// generalized so a caller can use it as the node storage for a
// multi-level radix tree: Key is not necessarily a full virtual address,
// it is whatever composite (node frame, index-within-node) key the
// walker chooses to identify one slot.
type PageTable struct {
	sync.Mutex
	tables map[request.ASID]*addressSpaceTable
}

// NewPageTable creates an empty PageTable.
func NewPageTable() *PageTable {
	return &PageTable{tables: make(map[request.ASID]*addressSpaceTable)}
}

func (pt *PageTable) getTable(asid request.ASID) *addressSpaceTable {
	pt.Lock()
	defer pt.Unlock()

	table, found := pt.tables[asid]
	if !found {
		table = &addressSpaceTable{
			entries:      list.New(),
			entriesByKey: make(map[uint64]*list.Element),
		}
		pt.tables[asid] = table
	}

	return table
}

// Insert adds a new entry to the table.
func (pt *PageTable) Insert(e Entry) {
	pt.getTable(e.ASID).insert(e)
}

// Remove deletes the entry keyed by key in asid's table.
func (pt *PageTable) Remove(asid request.ASID, key uint64) {
	pt.getTable(asid).remove(key)
}

// Find looks up the entry keyed by key in asid's table.
func (pt *PageTable) Find(asid request.ASID, key uint64) (Entry, bool) {
	return pt.getTable(asid).find(key)
}

// Update overwrites an existing entry, matched by its ASID and Key.
func (pt *PageTable) Update(e Entry) {
	pt.getTable(e.ASID).update(e)
}

// addressSpaceTable is one address space's set of page-table node
// entries: a doubly linked list for insertion order plus a map for O(1)
// lookup by key, exactly mem/vm/pagetable.go's processTable shape.
type addressSpaceTable struct {
	sync.Mutex
	entries      *list.List
	entriesByKey map[uint64]*list.Element
}

func (t *addressSpaceTable) insert(e Entry) {
	t.Lock()
	defer t.Unlock()

	elem := t.entries.PushBack(e)
	t.entriesByKey[e.Key] = elem
}

func (t *addressSpaceTable) remove(key uint64) {
	t.Lock()
	defer t.Unlock()

	elem, found := t.entriesByKey[key]
	if !found {
		return
	}

	t.entries.Remove(elem)
	delete(t.entriesByKey, key)
}

func (t *addressSpaceTable) update(e Entry) {
	t.Lock()
	defer t.Unlock()

	elem, found := t.entriesByKey[e.Key]
	if !found {
		panic("vmem: update of an entry that does not exist")
	}

	elem.Value = e
}

func (t *addressSpaceTable) find(key uint64) (Entry, bool) {
	t.Lock()
	defer t.Unlock()

	elem, found := t.entriesByKey[key]
	if !found {
		return Entry{}, false
	}

	return elem.Value.(Entry), true
}
