package peerindex

import "fmt"

// slabSize is the number of entries added per growth step.
const slabSize = 64

// arena owns the entry storage. Entries live in fixed slabs so their
// addresses stay stable while the arena grows, and every entry is findable
// by id without a map lookup. Ids of released entries are kept on a stack
// and reused before the arena grows again.
type arena struct {
	slabs [][]entry
	free  []PeerID
	max   int
}

// newArena sizes the id space. maxEntries is rounded up to a whole number
// of slabs; zero means the default of one slab.
func newArena(maxEntries int) *arena {
	if maxEntries <= 0 {
		maxEntries = slabSize
	}
	if rem := maxEntries % slabSize; rem != 0 {
		maxEntries += slabSize - rem
	}
	return &arena{max: maxEntries}
}

func (a *arena) capacity() int { return a.max }

func (a *arena) freeCount() int {
	return len(a.free) + a.max - len(a.slabs)*slabSize
}

// allocate returns a free entry, growing the arena by one slab when the
// free stack is empty. It returns nil once every id is in use.
func (a *arena) allocate() *entry {
	if len(a.free) == 0 && !a.grow() {
		return nil
	}
	id := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	e := a.entryAt(id)
	e.state = entryInUse
	e.id = id
	return e
}

// release returns an entry's id to the free stack. The caller must have
// detached the session and pending connection first.
func (a *arena) release(e *entry) {
	if e.state != entryInUse {
		panic(fmt.Sprintf("peerindex: release of free entry %d", e.id))
	}
	if e.pending != nil {
		panic(fmt.Sprintf("peerindex: release of entry %d with pending connection", e.id))
	}
	id := e.id
	e.clear()
	a.free = append(a.free, id)
}

func (a *arena) grow() bool {
	if len(a.slabs)*slabSize >= a.max {
		return false
	}
	base := PeerID(len(a.slabs)*slabSize) + 1
	a.slabs = append(a.slabs, make([]entry, slabSize))
	// Push the new ids high to low so the lowest one is handed out first.
	for i := slabSize - 1; i >= 0; i-- {
		a.free = append(a.free, base+PeerID(i))
	}
	return true
}

// entryAt maps an id back to its slot. Ids start at 1; NullPeerID has no
// slot.
func (a *arena) entryAt(id PeerID) *entry {
	if id == NullPeerID {
		return nil
	}
	slot := int(id) - 1
	slab := slot / slabSize
	if slab >= len(a.slabs) {
		return nil
	}
	return &a.slabs[slab][slot%slabSize]
}
