package ecs

import "go.uber.org/zap"

// Range is a half-open interval of dense indices.
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) Len() uint32 { return r.End - r.Start }

// Subpool partitions a pool's dense array into ordered contiguous ranges,
// each named by a generational range id. ranges holds, per logical
// position, one past the end of that range; a range starts where the
// previous one ends. sorted maps a range id's index to its position.
type Subpool struct {
	rangeids  []uint32
	sorted    []uint32
	ranges    []uint32
	next      uint32
	available uint32
	numRanges uint32
	grow      uint32
}

func newSubpool(grow uint32) Subpool {
	if grow == 0 {
		grow = DefaultRangeGrow
	}
	return Subpool{grow: grow}
}

// active is the number of live ranges.
func (sp *Subpool) active() uint32 { return sp.numRanges - sp.available }

// Active is the number of live ranges.
func (sp *Subpool) Active() uint32 { return sp.active() }

// Ends returns the end offsets of the live ranges in storage order.
func (sp *Subpool) Ends() []uint32 { return sp.ranges[:sp.active()] }

func (sp *Subpool) valid(id uint32) bool {
	ind := EntityID(id).Index()
	return ind < sp.numRanges && sp.rangeids[ind] == id
}

// Range returns the dense interval owned by range id.
func (sp *Subpool) Range(id uint32) Range {
	pos := sp.sorted[EntityID(id).Index()]
	var start uint32
	if pos > 0 {
		start = sp.ranges[pos-1]
	}
	return Range{Start: start, End: sp.ranges[pos]}
}

// rangeOf returns the position of the range containing dense index ind, or
// the number of live ranges when ind lies past all of them.
func (sp *Subpool) rangeOf(ind uint32) uint32 {
	num := sp.active()
	for r := uint32(0); r < num; r++ {
		if ind < sp.ranges[r] {
			return r
		}
	}
	return num
}

// newRange allocates an empty range after the current last one, reusing a
// freed range id (with its bumped generation) when one is available.
func (sp *Subpool) newRange() uint32 {
	var id uint32
	num := sp.active()
	if sp.available > 0 {
		sp.available--
		next := sp.next
		id = next | uint32(EntityID(sp.rangeids[next]).genBits())
		sp.next = EntityID(sp.rangeids[next]).Index()
		sp.rangeids[next] = id
		sp.sorted[next] = num
	} else {
		if sp.numRanges == NullEnt.Index() {
			fatalf("NewSubpoolRange", "out of range ids")
		}
		if sp.numRanges == uint32(len(sp.rangeids)) {
			max := len(sp.rangeids) + int(sp.grow)
			sp.rangeids = growUint32(sp.rangeids, max)
			sp.sorted = growUint32(sp.sorted, max)
			sp.ranges = growUint32(sp.ranges, max)
		}
		id = sp.numRanges
		sp.numRanges++
		sp.rangeids[id] = id
		sp.sorted[id] = num
	}
	var end uint32
	if num > 0 {
		end = sp.ranges[num-1]
	}
	sp.ranges[num] = end
	return id
}

// freeRange recycles id and closes its position in ranges, shifting later
// ranges down by delta elements and one position. It returns the interval
// the range owned.
func (sp *Subpool) freeRange(id uint32) Range {
	ind := EntityID(id).Index()
	pos := sp.sorted[ind]
	rng := sp.Range(id)
	delta := rng.Len()
	num := sp.active()

	sp.rangeids[ind] = uint32(EntityID(id).nextGen().genBits()) | sp.next
	sp.next = ind
	sp.available++
	for i := pos; i+1 < num; i++ {
		sp.ranges[i] = sp.ranges[i+1] - delta
	}
	for i := uint32(0); i < sp.numRanges; i++ {
		if sp.sorted[i] > pos {
			sp.sorted[i]--
		}
	}
	return rng
}

func growUint32(s []uint32, n int) []uint32 {
	g := make([]uint32, n)
	copy(g, s)
	return g
}

// NewSubpoolRange adds an empty range at the end of comp's partition.
func (r *Registry) NewSubpoolRange(comp uint32) uint32 {
	r.component("NewSubpoolRange", comp)
	id := r.subpools[comp].newRange()
	r.log.Debug("subpool range created",
		zap.String("component", r.components[comp].Name),
		zap.Uint32("rangeid", id))
	return id
}

// DelSubpoolRange drops every element inside range id from comp's pool,
// running the destroy callback on each, shifts later ranges down and
// recycles the id. A stale id is ignored.
func (r *Registry) DelSubpoolRange(comp, id uint32) {
	c := r.component("DelSubpoolRange", comp)
	sp := &r.subpools[comp]
	if !sp.valid(id) {
		return
	}
	pool := &r.pools[comp]
	rng := sp.Range(id)
	if c.destroy != nil {
		for i := rng.Start; i < rng.End; i++ {
			c.destroy(r, pool.data.ptr(i))
		}
		if sp.Range(id) != rng {
			r.fatalf("DelSubpoolRange", "%s destroy callback changed range %d",
				c.Name, id)
		}
	}
	sp.freeRange(id)

	for i := rng.Start; i < rng.End; i++ {
		pool.sparse[pool.dense[i].Index()] = uint32(NullEnt)
	}
	delta := rng.Len()
	for i := rng.End; i < pool.count; i++ {
		pool.sparse[pool.dense[i].Index()] -= delta
	}
	if move := pool.count - rng.End; move > 0 && delta > 0 {
		copy(pool.dense[rng.Start:], pool.dense[rng.End:pool.count])
		pool.data.move(rng.Start, rng.End, move)
	}
	if delta > 0 {
		pool.data.clear(pool.count-delta, delta)
		for i := pool.count - delta; i < pool.count; i++ {
			pool.dense[i] = NullEnt
		}
	}
	pool.count -= delta
	r.log.Debug("subpool range deleted",
		zap.String("component", c.Name),
		zap.Uint32("rangeid", id),
		zap.Uint32("elements", delta))
}

// SubpoolRange returns the dense interval currently owned by range id.
func (r *Registry) SubpoolRange(comp, id uint32) Range {
	r.component("SubpoolRange", comp)
	return r.subpools[comp].Range(id)
}

// Subpool exposes comp's range partition.
func (r *Registry) Subpool(comp uint32) *Subpool {
	r.component("Subpool", comp)
	return &r.subpools[comp]
}

// MoveSubpoolLast rotates range id's block to sit after the current last
// range, preserving the order of its elements, so that appends to it stay
// at the end of the pool.
func (r *Registry) MoveSubpoolLast(comp, id uint32) {
	r.component("MoveSubpoolLast", comp)
	sp := &r.subpools[comp]
	if !sp.valid(id) {
		r.fatalf("MoveSubpoolLast", "stale range id %#x", id)
	}
	pool := &r.pools[comp]
	ind := EntityID(id).Index()
	pos := sp.sorted[ind]
	num := sp.active()
	lastPos := num - 1

	rng := sp.Range(id)
	last := sp.ranges[lastPos]
	count := rng.Len()
	src := rng.Start
	dst := last - count
	for i := pos; i < lastPos; i++ {
		sp.ranges[i] = sp.ranges[i+1] - count
	}
	for i := uint32(0); i < sp.numRanges; i++ {
		if sp.sorted[i] > pos {
			sp.sorted[i]--
		}
	}
	sp.sorted[ind] = lastPos

	switch {
	case dst == src:
		// already last
	case dst < src:
		for i := dst; i < src; i++ {
			pool.sparse[pool.dense[i].Index()] += count
		}
		for i := src; i < src+count; i++ {
			pool.sparse[pool.dense[i].Index()] -= src - dst
		}
	default:
		for i := src; i < src+count; i++ {
			pool.sparse[pool.dense[i].Index()] += dst - src
		}
		for i := src + count; i < dst+count; i++ {
			pool.sparse[pool.dense[i].Index()] -= count
		}
	}
	pool.data.rotate(dst, src, count)
	rotateSlice(pool.dense, dst, src, count)
}
