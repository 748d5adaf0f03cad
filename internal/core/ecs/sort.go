package ecs

import "sort"

// poolSorter sorts a window of a pool in place, keeping sparse, dense and
// data in step.
type poolSorter[T any] struct {
	pool  *Pool
	data  []T
	start uint32
	cmp   func(a, b *T) int
}

func (s *poolSorter[T]) Len() int { return len(s.data) }

func (s *poolSorter[T]) Less(i, j int) bool {
	return s.cmp(&s.data[i], &s.data[j]) < 0
}

func (s *poolSorter[T]) Swap(i, j int) {
	s.pool.swapElements(s.start+uint32(i), s.start+uint32(j))
}

// SortComponents orders every element of kind comp by cmp. Ranges are
// ignored; use SortComponentRange on pools that are partitioned.
func SortComponents[T any](r *Registry, comp uint32, cmp func(a, b *T) int) {
	col := columnOf[T](r, "SortComponents", comp)
	pool := &r.pools[comp]
	sort.Sort(&poolSorter[T]{pool: pool, data: col.data[:pool.count], cmp: cmp})
}

// SortComponentRange orders the elements of kind comp inside rng by cmp.
func SortComponentRange[T any](r *Registry, comp uint32, rng Range, cmp func(a, b *T) int) {
	col := columnOf[T](r, "SortComponentRange", comp)
	pool := &r.pools[comp]
	if rng.End > pool.count || rng.Start > rng.End {
		r.fatalf("SortComponentRange", "range [%d,%d) outside pool of %d",
			rng.Start, rng.End, pool.count)
	}
	sort.Sort(&poolSorter[T]{
		pool:  pool,
		data:  col.data[rng.Start:rng.End],
		start: rng.Start,
		cmp:   cmp,
	})
}
