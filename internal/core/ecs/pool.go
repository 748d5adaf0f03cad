package ecs

// Pool is the sparse set holding every element of one component kind.
// sparse maps an entity index to a dense index, dense maps back to the
// entity and data[i] belongs to dense[i].
type Pool struct {
	sparse []uint32
	dense  []EntityID
	data   column
	count  uint32
	grow   uint32
}

func newPool(c *Component, grow uint32, maxEnt uint32) Pool {
	p := Pool{data: c.newColumn(), grow: grow}
	p.growSparse(maxEnt)
	return p
}

// Count is the number of live elements.
func (p *Pool) Count() uint32 { return p.count }

// Capacity is the number of element slots allocated.
func (p *Pool) Capacity() uint32 { return uint32(len(p.dense)) }

// Dense returns the entity ids of the live elements in storage order. The
// slice aliases pool storage and is invalidated by any add or remove.
func (p *Pool) Dense() []EntityID { return p.dense[:p.count] }

func (p *Pool) growSparse(maxEnt uint32) {
	if maxEnt <= uint32(len(p.sparse)) {
		return
	}
	sparse := make([]uint32, maxEnt)
	n := copy(sparse, p.sparse)
	for i := n; i < len(sparse); i++ {
		sparse[i] = uint32(NullEnt)
	}
	p.sparse = sparse
}

func (p *Pool) has(ent EntityID) bool {
	ind := ent.Index()
	if ind >= uint32(len(p.sparse)) {
		return false
	}
	d := p.sparse[ind]
	return d < p.count && p.dense[d] == ent
}

// expand reserves count new slots at the end of the pool, growing storage in
// whole chunks, and returns the index of the first one.
func (p *Pool) expand(count uint32) uint32 {
	if p.count+count > uint32(len(p.dense)) {
		max := p.count + count + p.grow - 1
		max -= max % p.grow
		dense := make([]EntityID, max)
		copy(dense, p.dense)
		p.dense = dense
		p.data.resize(max)
	}
	ind := p.count
	p.count += count
	return ind
}

// relocate moves the element at src to the unused slot dst.
func (p *Pool) relocate(dst, src uint32) {
	ent := p.dense[src]
	p.dense[dst] = ent
	p.data.move(dst, src, 1)
	if p.sparse != nil {
		p.sparse[ent.Index()] = dst
	}
}

// insertInRange turns the freshly expanded slot ind (the last one) into the
// last slot of range rangeid. Every later range hands its first element
// over to its own end, so the hole walks down to the target range.
func (p *Pool) insertInRange(sp *Subpool, rangeid, ind uint32) uint32 {
	r := sp.sorted[EntityID(rangeid).Index()]
	num := sp.active()
	if tail := sp.ranges[num-1]; tail != ind {
		// elements past the last range: rotate the tail by one
		p.relocate(ind, tail)
		ind = tail
	}
	for i := num - 1; i > r; i-- {
		start := sp.ranges[i-1]
		if start != ind {
			p.relocate(ind, start)
		}
		sp.ranges[i]++
		ind = start
	}
	sp.ranges[r]++
	return ind
}

// vacate removes the element at ind from storage without running any
// callbacks. Inside a range the hole is filled from the end of that range
// and the hole cascades through every later range; the unranged tail uses
// a plain swap-remove.
func (p *Pool) vacate(sp *Subpool, ind uint32) {
	hole := ind
	if sp != nil {
		num := sp.active()
		for r := sp.rangeOf(ind); r < num; r++ {
			last := sp.ranges[r] - 1
			if last != hole {
				p.relocate(hole, last)
			}
			sp.ranges[r]--
			hole = last
		}
	}
	last := p.count - 1
	if hole != last {
		p.relocate(hole, last)
	}
	p.data.clear(last, 1)
	p.dense[last] = NullEnt
	p.count--
}

// swapElements exchanges two live elements, keeping sparse consistent.
func (p *Pool) swapElements(i, j uint32) {
	a, b := p.dense[i], p.dense[j]
	p.dense[i], p.dense[j] = b, a
	p.data.swap(i, j)
	p.sparse[a.Index()] = j
	p.sparse[b.Index()] = i
}
