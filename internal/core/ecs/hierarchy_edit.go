package ecs

import "go.uber.org/zap"

// insertFlat opens count slots at the end of dstParent's child block and
// fills them from src (or fresh members when src is nil). It returns the
// first new slot.
func (h *Hierarchy) insertFlat(src *Hierarchy, dstParent uint32, srcRoot *uint32, count uint32) uint32 {
	insertIndex := h.childIndex[dstParent] + h.childCount[dstParent]
	// the neighbour's children are where ours start
	childIndex := h.childIndex[insertIndex-1] + h.childCount[insertIndex-1]
	h.updateTransformIndices(insertIndex, int32(count))
	h.updateChildIndices(dstParent+1, int32(count))
	h.updateParentIndices(childIndex, int32(count))
	childIndex += count
	h.open(insertIndex, count)
	if src != nil {
		moveObjects(h, src, insertIndex, *srcRoot, count)
		for i := insertIndex; i < insertIndex+count; i++ {
			h.parentIndex[i] = dstParent
			h.childIndex[i] = childIndex
			h.childCount[i] = 0
			h.nextIndex[i] = NullIndex
			h.lastIndex[i] = NullIndex
		}
	} else {
		h.init(insertIndex, dstParent, childIndex, count)
	}
	h.childCount[dstParent] += count
	return insertIndex
}

// insertTree appends one slot and links it as dstParent's last child.
func (h *Hierarchy) insertTree(src *Hierarchy, dstParent uint32, srcRoot *uint32) uint32 {
	ins := h.num
	h.open(ins, 1)
	if src != nil {
		moveObjects(h, src, ins, *srcRoot, 1)
	} else {
		h.init(ins, dstParent, NullIndex, 1)
	}
	h.parentIndex[ins] = dstParent
	h.childCount[ins] = 0
	h.childIndex[ins] = NullIndex
	h.nextIndex[ins] = NullIndex
	h.lastIndex[ins] = NullIndex
	h.link(dstParent, ins)
	return ins
}

func (h *Hierarchy) insert(src *Hierarchy, dstParent uint32, srcRoot *uint32, count uint32) uint32 {
	if h.treeMode {
		ind := uint32(0)
		for i := uint32(0); i < count; i++ {
			var root *uint32
			if src != nil {
				r := *srcRoot + i
				root = &r
			}
			n := h.insertTree(src, dstParent, root)
			if i == 0 {
				ind = n
			}
		}
		return ind
	}
	return h.insertFlat(src, dstParent, srcRoot, count)
}

// link appends n to p's child list.
func (h *Hierarchy) link(p, n uint32) {
	if h.childCount[p] > 0 {
		h.nextIndex[h.lastIndex[p]] = n
	} else {
		h.childIndex[p] = n
	}
	h.lastIndex[p] = n
	h.nextIndex[n] = NullIndex
	h.childCount[p]++
}

// unlink takes n out of its parent's child list.
func (h *Hierarchy) unlink(n uint32) {
	p := h.parentIndex[n]
	prev := NullIndex
	for c := h.childIndex[p]; c != n; c = h.nextIndex[c] {
		if c == NullIndex {
			h.reg.fatalf("InsertHierarchy", "slot %d missing from its parent's child list", n)
		}
		prev = c
	}
	if prev == NullIndex {
		h.childIndex[p] = h.nextIndex[n]
	} else {
		h.nextIndex[prev] = h.nextIndex[n]
	}
	if h.lastIndex[p] == n {
		h.lastIndex[p] = prev
	}
	h.childCount[p]--
	h.nextIndex[n] = NullIndex
}

// reparentTree relinks slot n under p without moving any slot.
func (h *Hierarchy) reparentTree(n, p uint32) uint32 {
	if h.parentIndex[n] == NullIndex {
		h.reg.fatalf("InsertHierarchy", "cannot reparent the root")
	}
	if h.inSubtree(p, n) {
		h.reg.fatalf("InsertHierarchy", "slot %d cannot become a descendant of itself", n)
	}
	h.unlink(n)
	h.link(p, n)
	h.parentIndex[n] = p
	return n
}

// insertChildren copies the descendants of src's *srcRoot under dst's slot
// dstParent.
func (h *Hierarchy) insertChildren(src *Hierarchy, dstParent uint32, srcRoot *uint32) {
	if src.treeMode || h.treeMode {
		for _, c := range src.Children(*srcRoot) {
			n := h.insert(src, dstParent, &c, 1)
			h.insertChildren(src, n, &c)
		}
		return
	}
	childIndex := src.childIndex[*srcRoot]
	childCount := src.childCount[*srcRoot]
	if childCount == 0 {
		return
	}
	ins := h.insertFlat(src, dstParent, &childIndex, childCount)
	for i := uint32(0); i < childCount; i, childIndex = i+1, childIndex+1 {
		h.insertChildren(src, ins+i, &childIndex)
	}
}

// insertHierarchy moves the subtree of src rooted at *srcRoot under
// dstParent (or makes a root when dstParent is NullIndex), leaving
// moved-out slots behind in src. With src nil a single fresh member is
// created. h and src must differ.
func (h *Hierarchy) insertHierarchy(src *Hierarchy, dstParent uint32, srcRoot *uint32) uint32 {
	if src != nil && src.typ != h.typ {
		h.reg.fatalf("InsertHierarchy", "hierarchy types do not match")
	}
	var ind uint32
	if dstParent == NullIndex {
		if h.num != 0 {
			h.reg.fatalf("InsertHierarchy", "inserting root into non-empty hierarchy")
		}
		h.open(0, 1)
		childIndex := uint32(1)
		if h.treeMode {
			childIndex = NullIndex
		}
		if src != nil {
			moveObjects(h, src, 0, *srcRoot, 1)
			h.parentIndex[0] = NullIndex
			h.childIndex[0] = childIndex
			h.childCount[0] = 0
			h.nextIndex[0] = NullIndex
			h.lastIndex[0] = NullIndex
		} else {
			h.init(0, NullIndex, childIndex, 1)
		}
	} else {
		if dstParent >= h.num {
			h.reg.fatalf("InsertHierarchy", "parent slot %d out of range (%d objects)",
				dstParent, h.num)
		}
		ind = h.insert(src, dstParent, srcRoot, 1)
	}
	if src != nil {
		h.insertChildren(src, ind, srcRoot)
	}
	return ind
}

// moveWithin reparents slot n under p inside h.
func (h *Hierarchy) moveWithin(p, n uint32) uint32 {
	if h.treeMode {
		return h.reparentTree(n, p)
	}
	if h.parentIndex[n] == NullIndex {
		h.reg.fatalf("InsertHierarchy", "cannot reparent the root")
	}
	if h.inSubtree(p, n) {
		h.reg.fatalf("InsertHierarchy", "slot %d cannot become a descendant of itself", n)
	}
	scratch := newHierarchy(h.reg, h.hrefComp, h.typ)
	scratch.insertHierarchy(h, NullIndex, &n)
	remap := h.remove(n, false)
	root := uint32(0)
	return h.insertHierarchy(scratch, remap(p), &root)
}

// InsertHierarchy moves the subtree at sref under the slot dref names, or
// creates a fresh member there when sref does not name a hierarchy, and
// returns the new reference of the subtree root. A dref index of NullIndex
// inserts the root of an empty hierarchy.
//
// Moving between hierarchies leaves the source slots behind as moved-out
// members; SetParent is the variant that also removes them. Within one
// hierarchy the subtree is simply reparented.
func (r *Registry) InsertHierarchy(dref, sref HierRef) HierRef {
	dst := r.Hierarchy(dref.ID)
	if !r.EntValid(sref.ID) || !r.HasComponent(sref.ID, CompHierarchy) {
		ind := dst.insertHierarchy(nil, dref.Index, nil)
		return HierRef{ID: dst.id, Index: ind}
	}
	src := r.Hierarchy(sref.ID)
	if src == dst {
		return HierRef{ID: dst.id, Index: dst.moveWithin(dref.Index, sref.Index)}
	}
	srcRoot := sref.Index
	ind := dst.insertHierarchy(src, dref.Index, &srcRoot)
	r.log.Debug("hierarchy subtree inserted",
		zap.Stringer("src", sref),
		zap.Stringer("dst", HierRef{ID: dst.id, Index: ind}))
	return HierRef{ID: dst.id, Index: ind}
}

// Remove drops the subtree rooted at index, compacting the remaining slots
// and fixing every index and back reference. With delEntities the subtree's
// entities are deleted, children before parents, after the hierarchy is
// consistent again. Tree-mode hierarchies do not support removal.
func (h *Hierarchy) Remove(index uint32, delEntities bool) {
	h.remove(index, delEntities)
}

func (h *Hierarchy) remove(index uint32, delEntities bool) func(uint32) uint32 {
	if h.treeMode {
		h.reg.fatalf("RemoveHierarchy", "remove from tree-mode hierarchy not supported")
	}
	if index >= h.num {
		h.reg.fatalf("RemoveHierarchy", "slot %d out of range (%d objects)", index, h.num)
	}
	num := h.num
	removed := make([]bool, num)
	order := []uint32{index}
	for q := 0; q < len(order); q++ {
		n := order[q]
		removed[n] = true
		for c := h.childIndex[n]; c < h.childIndex[n]+h.childCount[n]; c++ {
			order = append(order, c)
		}
	}
	var dead []EntityID
	if delEntities {
		for i := len(order) - 1; i >= 0; i-- {
			ent := h.ent[order[i]]
			if ent == NullEnt {
				continue
			}
			if ref := h.ref(ent); ref != nil {
				*ref = NullHref
			}
			dead = append(dead, ent)
		}
	}

	total := uint32(len(order))
	newIndex := make([]uint32, num)
	shift := uint32(0)
	for i := uint32(0); i < num; i++ {
		newIndex[i] = i - shift
		if removed[i] {
			shift++
		}
	}
	remap := func(i uint32) uint32 {
		if i == NullIndex {
			return i
		}
		if i >= num {
			return i - total
		}
		return newIndex[i]
	}

	parent := h.parentIndex[index]
	w := uint32(0)
	for i := uint32(0); i < num; i++ {
		if removed[i] {
			continue
		}
		if w != i {
			h.ent[w] = h.ent[i]
			h.childCount[w] = h.childCount[i]
			h.childIndex[w] = h.childIndex[i]
			h.parentIndex[w] = h.parentIndex[i]
			h.nextIndex[w] = h.nextIndex[i]
			h.lastIndex[w] = h.lastIndex[i]
			for _, col := range h.payload {
				col.move(w, i, 1)
			}
		}
		h.childIndex[w] = remap(h.childIndex[w])
		h.parentIndex[w] = remap(h.parentIndex[w])
		if ref := h.ref(h.ent[w]); ref != nil && ref.ID == h.id {
			ref.Index = w
		}
		w++
	}
	for i := w; i < num; i++ {
		h.ent[i] = NullEnt
	}
	for _, col := range h.payload {
		col.clear(w, num-w)
	}
	h.num = w
	if parent != NullIndex {
		h.childCount[remap(parent)]--
	}

	for _, ent := range dead {
		h.reg.DelEntity(ent)
	}
	return remap
}

// SetParent moves the subtree at sref under dref and returns its new
// reference. When dref names no hierarchy the subtree becomes the root of a
// new one (a root is returned unchanged). A source hierarchy left empty is
// deleted. Only flat hierarchies of the same type can be reparented.
func (r *Registry) SetParent(dref, sref HierRef) HierRef {
	src := r.Hierarchy(sref.ID)
	if src.treeMode {
		r.fatalf("SetParent", "tree-mode hierarchy not supported")
	}
	var dst *Hierarchy
	if r.EntValid(dref.ID) && r.HasComponent(dref.ID, CompHierarchy) {
		dst = r.Hierarchy(dref.ID)
		if dst.typ != src.typ {
			r.fatalf("SetParent", "hierarchy types do not match")
		}
		if dst.treeMode {
			r.fatalf("SetParent", "tree-mode hierarchy not supported")
		}
	} else {
		if sref.Index == 0 {
			return sref
		}
		hent := NewHierarchy(r, src.hrefComp, src.typ, false)
		dst = r.Hierarchy(hent)
		dref = HierRef{ID: hent, Index: NullIndex}
	}
	if dst == src {
		return r.InsertHierarchy(dref, sref)
	}
	res := r.InsertHierarchy(dref, sref)
	src.Remove(sref.Index, false)
	if src.num == 0 {
		DeleteHierarchy(r, sref.ID)
	}
	return res
}

// SetTreeMode switches h between the flat layout and the tree layout. The
// order of siblings is kept either way.
func (h *Hierarchy) SetTreeMode(treeMode bool) {
	if h.treeMode == treeMode {
		return
	}
	if treeMode {
		h.treeMode = true
		if h.num > 0 {
			h.nextIndex[0] = NullIndex
		}
		for i := uint32(0); i < h.num; i++ {
			if h.childCount[i] == 0 {
				h.childIndex[i] = NullIndex
				h.lastIndex[i] = NullIndex
				continue
			}
			first := h.childIndex[i]
			last := first + h.childCount[i] - 1
			h.lastIndex[i] = last
			for c := first; c < last; c++ {
				h.nextIndex[c] = c + 1
			}
			h.nextIndex[last] = NullIndex
		}
		h.reg.log.Debug("hierarchy mode changed",
			zap.Uint32("entity", uint32(h.id)),
			zap.Bool("tree", true))
		return
	}
	h.toFlat()
	h.reg.log.Debug("hierarchy mode changed",
		zap.Uint32("entity", uint32(h.id)),
		zap.Bool("tree", false))
}

// toFlat rebuilds the flat layout breadth first into fresh arrays.
func (h *Hierarchy) toFlat() {
	tmp := newHierarchy(h.reg, h.hrefComp, h.typ)
	tmp.id = h.id
	tmp.Reserve(h.num)
	tmp.num = h.num
	if h.num == 0 {
		h.treeMode = false
		return
	}
	// oldIndex doubles as the BFS queue
	oldIndex := make([]uint32, 0, h.num)
	newIndex := make([]uint32, h.num)
	oldIndex = append(oldIndex, 0)
	for q := 0; q < len(oldIndex); q++ {
		src := oldIndex[q]
		dst := uint32(q)
		newIndex[src] = dst
		tmp.ent[dst] = h.ent[src]
		tmp.childCount[dst] = h.childCount[src]
		tmp.parentIndex[dst] = h.parentIndex[src]
		tmp.childIndex[dst] = uint32(len(oldIndex))
		tmp.nextIndex[dst] = NullIndex
		tmp.lastIndex[dst] = NullIndex
		for k := range tmp.payload {
			tmp.payload[k].copyFrom(dst, h.payload[k], src, 1)
		}
		for c := h.childIndex[src]; c != NullIndex; c = h.nextIndex[c] {
			oldIndex = append(oldIndex, c)
		}
	}
	if uint32(len(oldIndex)) != h.num {
		h.reg.fatalf("SetTreeMode", "%d of %d slots reachable from the root",
			len(oldIndex), h.num)
	}
	for i := uint32(0); i < tmp.num; i++ {
		if p := tmp.parentIndex[i]; p != NullIndex {
			tmp.parentIndex[i] = newIndex[p]
		}
		if ref := tmp.ref(tmp.ent[i]); ref != nil {
			ref.Index = i
		}
	}
	h.ent, h.childCount, h.childIndex = tmp.ent, tmp.childCount, tmp.childIndex
	h.parentIndex, h.nextIndex, h.lastIndex = tmp.parentIndex, tmp.nextIndex, tmp.lastIndex
	h.payload = tmp.payload
	h.max = tmp.max
	h.treeMode = false
}

// CopyHierarchy builds, in dstReg, a new hierarchy of the same type and
// shape as src with fresh member entities. Each member gets a back
// reference in hrefComp; component data other than the payload is not
// copied. Tree-mode sources are not supported.
func CopyHierarchy(dstReg *Registry, hrefComp uint32, src *Hierarchy) EntityID {
	if src.treeMode {
		dstReg.fatalf("CopyHierarchy", "tree-mode hierarchy not supported")
	}
	hent := NewHierarchy(dstReg, hrefComp, src.typ, false)
	dst := dstReg.Hierarchy(hent)
	dst.Reserve(src.num)
	dst.num = src.num
	copy(dst.childCount, src.childCount[:src.num])
	copy(dst.childIndex, src.childIndex[:src.num])
	copy(dst.parentIndex, src.parentIndex[:src.num])
	copy(dst.nextIndex, src.nextIndex[:src.num])
	copy(dst.lastIndex, src.lastIndex[:src.num])
	for k := range dst.payload {
		dst.payload[k].copyFrom(0, src.payload[k], 0, src.num)
	}
	for i := uint32(0); i < dst.num; i++ {
		ent := dstReg.NewEntity()
		Set(dstReg, ent, hrefComp, HierRef{ID: hent, Index: i})
		dst.ent[i] = ent
	}
	dstReg.log.Debug("hierarchy copied",
		zap.Uint32("src", uint32(src.id)),
		zap.Uint32("dst", uint32(hent)),
		zap.Uint32("objects", dst.num))
	return hent
}
