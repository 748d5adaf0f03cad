package ecs

// Component describes one component kind registered with a Registry. Build
// it from a ComponentDef so the storage and callbacks share one element type.
type Component struct {
	Name string
	// RangeID, when set, names the subpool range an entity's element of this
	// kind belongs to. It is consulted when the element is added.
	RangeID func(reg *Registry, ent EntityID, comp uint32) uint32

	create    func(reg *Registry, p any)
	destroy   func(reg *Registry, p any)
	str       func(p any) string
	newColumn func() column
}

func (c *Component) HasCreate() bool  { return c.create != nil }
func (c *Component) HasDestroy() bool { return c.destroy != nil }

// ComponentDef is the typed form of a component kind. Create runs once when
// an element is newly attached, Destroy once when it is removed.
type ComponentDef[T any] struct {
	Name    string
	Create  func(reg *Registry, v *T)
	Destroy func(reg *Registry, v *T)
	RangeID func(reg *Registry, ent EntityID, comp uint32) uint32
	String  func(v *T) string
}

func (d ComponentDef[T]) Component() Component {
	c := Component{
		Name:      d.Name,
		RangeID:   d.RangeID,
		newColumn: func() column { return &Column[T]{} },
	}
	if d.Create != nil {
		create := d.Create
		c.create = func(reg *Registry, p any) { create(reg, p.(*T)) }
	}
	if d.Destroy != nil {
		destroy := d.Destroy
		c.destroy = func(reg *Registry, p any) { destroy(reg, p.(*T)) }
	}
	if d.String != nil {
		str := d.String
		c.str = func(p any) string { return str(p.(*T)) }
	}
	return c
}

// column is the type-erased element array behind a pool or a hierarchy
// payload. Go assignment already relocates any payload correctly, so move,
// swap and rotate need no per-kind hooks.
type column interface {
	resize(n uint32)
	ptr(i uint32) any
	load(i uint32) any
	store(i uint32, v any)
	move(dst, src, count uint32)
	copyFrom(dst uint32, src column, srcIndex, count uint32)
	swap(i, j uint32)
	rotate(dst, src, count uint32)
	clear(i, count uint32)
}

// Column is the concrete element array for component kind T. Elements are
// relocated by plain assignment, so kinds need no move or swap callbacks.
type Column[T any] struct {
	data []T
}

func (c *Column[T]) resize(n uint32) {
	data := make([]T, n)
	copy(data, c.data)
	c.data = data
}

func (c *Column[T]) ptr(i uint32) any      { return &c.data[i] }
func (c *Column[T]) load(i uint32) any     { return c.data[i] }
func (c *Column[T]) store(i uint32, v any) { c.data[i] = v.(T) }
func (c *Column[T]) swap(i, j uint32)      { c.data[i], c.data[j] = c.data[j], c.data[i] }
func (c *Column[T]) move(dst, src, count uint32) {
	copy(c.data[dst:dst+count], c.data[src:src+count])
}

func (c *Column[T]) copyFrom(dst uint32, src column, srcIndex, count uint32) {
	s, ok := src.(*Column[T])
	if !ok {
		fatalf("copyFrom", "column element types differ")
	}
	copy(c.data[dst:dst+count], s.data[srcIndex:srcIndex+count])
}

// rotate moves the block [src, src+count) so it starts at dst, shifting the
// elements in between to fill the vacated space.
func (c *Column[T]) rotate(dst, src, count uint32) {
	rotateSlice(c.data, dst, src, count)
}

func (c *Column[T]) clear(i, count uint32) {
	var zero T
	for j := i; j < i+count; j++ {
		c.data[j] = zero
	}
}

func rotateSlice[T any](s []T, dst, src, count uint32) {
	if dst == src || count == 0 {
		return
	}
	var lo, hi uint32
	if dst > src {
		lo, hi = src, dst+count
	} else {
		lo, hi = dst, src+count
	}
	win := s[lo:hi]
	// rotate left by k via three reversals
	k := count
	if dst < src {
		k = hi - lo - count
	}
	reverse(win[:k])
	reverse(win[k:])
	reverse(win)
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// createElements zeroes count elements at index and runs the kind's create
// callback on each of them.
func createElements(reg *Registry, c *Component, col column, index, count uint32) {
	col.clear(index, count)
	if c.create == nil {
		return
	}
	for i := index; i < index+count; i++ {
		c.create(reg, col.ptr(i))
	}
}
