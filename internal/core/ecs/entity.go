package ecs

// IDBits is the number of low bits of an id that hold the slot index. The
// remaining high bits hold the generation.
const IDBits = 20

const (
	indexMask = 1<<IDBits - 1
	genStep   = 1 << IDBits
)

// EntityID encodes a slot index in the lower IDBits bits and a generation
// in the upper bits. Generation increments on delete to invalidate stale refs.
type EntityID uint32

// NullEnt is the all-ones sentinel. Its index bits double as the
// "out of ids" limit.
const NullEnt EntityID = ^EntityID(0)

func NewEntityID(index, generation uint32) EntityID {
	return EntityID(generation<<IDBits | index&indexMask)
}

func (id EntityID) Index() uint32      { return uint32(id) & indexMask }
func (id EntityID) Generation() uint32 { return uint32(id) >> IDBits }
func (id EntityID) IsNull() bool       { return id == NullEnt }

// nextGen returns id with its generation bumped by one. Wraparound after
// 2^(32-IDBits) reuses of one slot is not guarded against.
func (id EntityID) nextGen() EntityID { return id + genStep }

// genBits keeps only the generation part of id.
func (id EntityID) genBits() EntityID { return id &^ indexMask }

// IDPool hands out generational ids and recycles freed slots through an
// intrusive free list threaded through ids: a free slot stores the index of
// the next free slot plus its already-bumped generation.
type IDPool struct {
	ids       []EntityID
	next      uint32
	available uint32
	numIDs    uint32
	grow      uint32
}

func NewIDPool(grow uint32) *IDPool {
	if grow == 0 {
		grow = DefaultEntityGrow
	}
	return &IDPool{grow: grow}
}

// NewID pops the free list if it is not empty, otherwise appends a fresh
// generation 0 slot. The second result reports whether the backing array
// grew, so owners can resize anything indexed by id.
func (p *IDPool) NewID() (EntityID, bool) {
	if p.available > 0 {
		p.available--
		ind := p.next
		id := NewEntityID(ind, p.ids[ind].Generation())
		p.next = p.ids[ind].Index()
		p.ids[ind] = id
		return id, false
	}
	if p.numIDs == NullEnt.Index() {
		fatalf("NewID", "out of ids (%d in use)", p.numIDs)
	}
	grew := false
	if p.numIDs == uint32(len(p.ids)) {
		ids := make([]EntityID, len(p.ids)+int(p.grow))
		copy(ids, p.ids)
		p.ids = ids
		grew = true
	}
	id := EntityID(p.numIDs)
	p.ids[p.numIDs] = id
	p.numIDs++
	return id, grew
}

// DelID frees id. Stale or never issued ids are ignored and report false.
func (p *IDPool) DelID(id EntityID) bool {
	if !p.Valid(id) {
		return false
	}
	ind := id.Index()
	p.ids[ind] = id.nextGen().genBits() | EntityID(p.next)
	p.next = ind
	p.available++
	return true
}

// Valid reports whether id is the handle most recently issued for its slot.
func (p *IDPool) Valid(id EntityID) bool {
	ind := id.Index()
	return ind < p.numIDs && p.ids[ind] == id
}

// Live is the number of ids currently in use.
func (p *IDPool) Live() uint32 { return p.numIDs - p.available }

func (p *IDPool) NumIDs() uint32    { return p.numIDs }
func (p *IDPool) Available() uint32 { return p.available }
func (p *IDPool) Capacity() uint32  { return uint32(len(p.ids)) }
