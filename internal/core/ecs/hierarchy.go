package ecs

import (
	"fmt"

	"go.uber.org/zap"
)

// NullIndex marks "no slot" in every hierarchy index array.
const NullIndex = ^uint32(0)

// HierRef is the component a hierarchy member carries: the entity hosting
// the hierarchy and the member's slot in it.
type HierRef struct {
	ID    EntityID
	Index uint32
}

// NullHref refers to nothing.
var NullHref = HierRef{ID: NullEnt, Index: NullIndex}

func (r HierRef) String() string {
	if r.ID == NullEnt {
		return "null"
	}
	return fmt.Sprintf("%d.%d:%d", r.ID.Generation(), r.ID.Index(), r.Index)
}

// HierrefComponent returns a component kind for hierarchy back references.
// Removing the element (or deleting its entity) removes the member and its
// whole subtree from the hierarchy, deleting the descendants' entities, and
// deletes the hierarchy once it is empty.
func HierrefComponent(name string) Component {
	return ComponentDef[HierRef]{
		Name:    name,
		Create:  func(_ *Registry, v *HierRef) { *v = NullHref },
		Destroy: destroyHierref,
		String:  func(v *HierRef) string { return v.String() },
	}.Component()
}

func destroyHierref(reg *Registry, v *HierRef) {
	if reg.locked {
		// the hierarchy goes away with the registry
		return
	}
	ref := *v
	if !reg.EntValid(ref.ID) || !reg.HasComponent(ref.ID, CompHierarchy) {
		return
	}
	h := reg.Hierarchy(ref.ID)
	h.ent[ref.Index] = NullEnt
	h.Remove(ref.Index, true)
	if h.num == 0 {
		DeleteHierarchy(reg, ref.ID)
	}
}

// HierarchyType lists the payload kinds stored alongside every hierarchy
// slot, such as transform data. Payload arrays move in lockstep with the
// index arrays.
type HierarchyType struct {
	Name       string
	Components []Component
}

// Hierarchy keeps parent/child relations over a flattened set of slots.
//
// In flat mode the children of slot i are exactly
// [childIndex[i], childIndex[i]+childCount[i]) and those blocks are ordered
// by their parents' positions, so the layout is breadth first. In tree mode
// children form a list through nextIndex, anchored at childIndex and cached
// at lastIndex, and new slots are always appended.
type Hierarchy struct {
	reg      *Registry
	id       EntityID
	hrefComp uint32
	typ      *HierarchyType

	ent         []EntityID
	childCount  []uint32
	childIndex  []uint32
	parentIndex []uint32
	nextIndex   []uint32
	lastIndex   []uint32
	payload     []column

	num      uint32
	max      uint32
	treeMode bool
}

func newHierarchy(reg *Registry, hrefComp uint32, typ *HierarchyType) *Hierarchy {
	h := &Hierarchy{reg: reg, id: NullEnt, hrefComp: hrefComp, typ: typ}
	if typ != nil {
		h.payload = make([]column, len(typ.Components))
		for i := range typ.Components {
			if typ.Components[i].newColumn == nil {
				reg.fatalf("NewHierarchy", "payload %q has no storage type",
					typ.Components[i].Name)
			}
			h.payload[i] = typ.Components[i].newColumn()
		}
	}
	return h
}

// NewHierarchy creates an entity hosting a new hierarchy whose members carry
// their back reference in component hrefComp. With createRoot the hierarchy
// starts with an empty root slot.
func NewHierarchy(reg *Registry, hrefComp uint32, typ *HierarchyType, createRoot bool) EntityID {
	reg.component("NewHierarchy", hrefComp)
	h := newHierarchy(reg, hrefComp, typ)
	if createRoot {
		h.open(0, 1)
		h.init(0, NullIndex, 1, 1)
	}
	hent := reg.NewEntity()
	h.id = hent
	Set(reg, hent, CompHierarchy, h)
	reg.log.Debug("hierarchy created",
		zap.Uint32("entity", uint32(hent)),
		zap.Bool("root", createRoot))
	return hent
}

// DeleteHierarchy detaches every member's back reference and deletes the
// hosting entity, which in turn deletes the member entities.
func DeleteHierarchy(reg *Registry, hent EntityID) {
	h := reg.Hierarchy(hent)
	h.invalidateReferences(0, h.num)
	reg.DelEntity(hent)
}

// Hierarchy returns the hierarchy hosted by hent.
func (r *Registry) Hierarchy(hent EntityID) *Hierarchy {
	if !r.EntValid(hent) || !r.pools[CompHierarchy].has(hent) {
		r.fatalf("Hierarchy", "entity %#x hosts no hierarchy", uint32(hent))
	}
	return *Get[*Hierarchy](r, hent, CompHierarchy)
}

func destroyHierarchyComponent(reg *Registry, v **Hierarchy) {
	if h := *v; h != nil {
		h.destroy()
		*v = nil
	}
}

// destroy invalidates all back references, deletes every member entity and
// releases the arrays.
func (h *Hierarchy) destroy() {
	h.invalidateReferences(0, h.num)
	for i := uint32(0); i < h.num; i++ {
		h.reg.DelEntity(h.ent[i])
	}
	h.reg.log.Debug("hierarchy destroyed",
		zap.Uint32("entity", uint32(h.id)),
		zap.Uint32("objects", h.num))
	h.release()
}

func (h *Hierarchy) release() {
	h.ent = nil
	h.childCount = nil
	h.childIndex = nil
	h.parentIndex = nil
	h.nextIndex = nil
	h.lastIndex = nil
	h.payload = nil
	h.num = 0
	h.max = 0
}

func (h *Hierarchy) String() string {
	if h == nil {
		return "hierarchy(nil)"
	}
	mode := "flat"
	if h.treeMode {
		mode = "tree"
	}
	return fmt.Sprintf("hierarchy(%d objects, %s)", h.num, mode)
}

func (h *Hierarchy) ID() EntityID               { return h.id }
func (h *Hierarchy) Registry() *Registry        { return h.reg }
func (h *Hierarchy) Type() *HierarchyType       { return h.typ }
func (h *Hierarchy) Len() uint32                { return h.num }
func (h *Hierarchy) Cap() uint32                { return h.max }
func (h *Hierarchy) TreeMode() bool             { return h.treeMode }
func (h *Hierarchy) Ent(i uint32) EntityID      { return h.ent[i] }
func (h *Hierarchy) Parent(i uint32) uint32     { return h.parentIndex[i] }
func (h *Hierarchy) ChildIndex(i uint32) uint32 { return h.childIndex[i] }
func (h *Hierarchy) ChildCount(i uint32) uint32 { return h.childCount[i] }
func (h *Hierarchy) NextIndex(i uint32) uint32  { return h.nextIndex[i] }
func (h *Hierarchy) LastIndex(i uint32) uint32  { return h.lastIndex[i] }

// SetEnt makes ent the member at slot index and points its back reference,
// if it has one, at that slot.
func (h *Hierarchy) SetEnt(index uint32, ent EntityID) {
	h.ent[index] = ent
	if ref := h.ref(ent); ref != nil {
		*ref = HierRef{ID: h.id, Index: index}
	}
}

// Children returns the slots of index's children in sibling order.
func (h *Hierarchy) Children(index uint32) []uint32 {
	count := h.childCount[index]
	out := make([]uint32, 0, count)
	if h.treeMode {
		for c := h.childIndex[index]; c != NullIndex && uint32(len(out)) < count; c = h.nextIndex[c] {
			out = append(out, c)
		}
		return out
	}
	for c := h.childIndex[index]; c < h.childIndex[index]+count; c++ {
		out = append(out, c)
	}
	return out
}

// Payload returns payload array k of h's type for the live slots.
func Payload[T any](h *Hierarchy, k int) []T {
	col, ok := h.payload[k].(*Column[T])
	if !ok {
		h.reg.fatalf("Payload", "payload %d does not store %T", k, *new(T))
	}
	return col.data[:h.num]
}

// ref returns the back reference of a live member, or nil.
func (h *Hierarchy) ref(ent EntityID) *HierRef {
	if ent == NullEnt || !h.reg.EntValid(ent) || !h.reg.pools[h.hrefComp].has(ent) {
		return nil
	}
	return Get[HierRef](h.reg, ent, h.hrefComp)
}

func (h *Hierarchy) indexArrays() []*[]uint32 {
	return []*[]uint32{
		&h.childCount, &h.childIndex, &h.parentIndex, &h.nextIndex, &h.lastIndex,
	}
}

// Reserve makes room for count more slots, rounding capacity up to the
// registry's hierarchy block size.
func (h *Hierarchy) Reserve(count uint32) {
	if h.num+count <= h.max {
		return
	}
	block := h.reg.tun.HierarchyBlock
	max := (h.num + count + block - 1) &^ (block - 1)

	ent := make([]EntityID, max)
	copy(ent, h.ent)
	h.ent = ent
	for _, a := range h.indexArrays() {
		*a = growUint32(*a, int(max))
	}
	for _, col := range h.payload {
		col.resize(max)
	}
	h.max = max
}

// open makes a gap of count slots at index, shifting the tail up.
func (h *Hierarchy) open(index, count uint32) {
	h.Reserve(count)
	h.num += count
	dst := index + count
	n := h.num - index - count
	if n == 0 {
		return
	}
	copy(h.ent[dst:dst+n], h.ent[index:index+n])
	for _, a := range h.indexArrays() {
		copy((*a)[dst:dst+n], (*a)[index:index+n])
	}
	for _, col := range h.payload {
		col.move(dst, index, n)
	}
}

// init resets count slots at index to fresh childless members.
func (h *Hierarchy) init(index, parentIndex, childIndex, count uint32) {
	for i := index; i < index+count; i++ {
		h.ent[i] = NullEnt
		h.parentIndex[i] = parentIndex
		h.childCount[i] = 0
		h.childIndex[i] = childIndex
		h.nextIndex[i] = NullIndex
		h.lastIndex[i] = NullIndex
	}
	if h.typ != nil {
		for k := range h.typ.Components {
			createElements(h.reg, &h.typ.Components[k], h.payload[k], index, count)
		}
	}
}

// moveObjects transfers members (entities and payload) from src to dst and
// repoints their back references. The source slots are left as moved-out
// sentinels so later index fixups in src never touch the moved members.
func moveObjects(dst, src *Hierarchy, dstIndex, srcIndex, count uint32) {
	copy(dst.ent[dstIndex:dstIndex+count], src.ent[srcIndex:srcIndex+count])
	for i := srcIndex; i < srcIndex+count; i++ {
		src.ent[i] = NullEnt
	}
	for i := uint32(0); i < count; i++ {
		if ref := dst.ref(dst.ent[dstIndex+i]); ref != nil {
			*ref = HierRef{ID: dst.id, Index: dstIndex + i}
		}
	}
	for k := range dst.payload {
		dst.payload[k].copyFrom(dstIndex, src.payload[k], srcIndex, count)
	}
}

func (h *Hierarchy) updateTransformIndices(start uint32, offset int32) {
	for i := start; i < h.num; i++ {
		if ref := h.ref(h.ent[i]); ref != nil && ref.ID == h.id {
			ref.Index += uint32(offset)
		}
	}
}

func (h *Hierarchy) invalidateReferences(start, count uint32) {
	for i := start; i < start+count; i++ {
		if ref := h.ref(h.ent[i]); ref != nil {
			*ref = NullHref
		}
	}
}

func (h *Hierarchy) updateChildIndices(start uint32, offset int32) {
	for i := start; i < h.num; i++ {
		h.childIndex[i] += uint32(offset)
	}
}

func (h *Hierarchy) updateParentIndices(start uint32, offset int32) {
	for i := start; i < h.num; i++ {
		h.parentIndex[i] += uint32(offset)
	}
}

// inSubtree reports whether slot i lies in the subtree rooted at root.
func (h *Hierarchy) inSubtree(i, root uint32) bool {
	for ; i != NullIndex; i = h.parentIndex[i] {
		if i == root {
			return true
		}
	}
	return false
}
