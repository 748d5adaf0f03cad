package ecs

// Each calls fn for every element of kind comp. Elements are visited from
// the end of the pool, so fn may remove the current element.
func Each[A any](r *Registry, ca uint32, fn func(EntityID, *A)) {
	col := columnOf[A](r, "Each", ca)
	pool := &r.pools[ca]
	for i := pool.count; i > 0; i-- {
		if i > pool.count {
			continue
		}
		fn(pool.dense[i-1], &col.data[i-1])
	}
}

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller pool and checks the larger one.
func Each2[A, B any](r *Registry, ca, cb uint32, fn func(EntityID, *A, *B)) {
	columnOf[A](r, "Each2", ca)
	columnOf[B](r, "Each2", cb)
	pa := &r.pools[ca]
	pb := &r.pools[cb]
	drive := pa
	if pb.count < pa.count {
		drive = pb
	}
	for i := drive.count; i > 0; i-- {
		if i > drive.count {
			continue
		}
		ent := drive.dense[i-1]
		if !pa.has(ent) || !pb.has(ent) {
			continue
		}
		fn(ent, Get[A](r, ent, ca), Get[B](r, ent, cb))
	}
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](r *Registry, ca, cb, cc uint32, fn func(EntityID, *A, *B, *C)) {
	columnOf[A](r, "Each3", ca)
	columnOf[B](r, "Each3", cb)
	columnOf[C](r, "Each3", cc)
	// Iterate the smallest pool
	pools := [3]*Pool{&r.pools[ca], &r.pools[cb], &r.pools[cc]}
	drive := pools[0]
	for _, p := range pools[1:] {
		if p.count < drive.count {
			drive = p
		}
	}
	for i := drive.count; i > 0; i-- {
		if i > drive.count {
			continue
		}
		ent := drive.dense[i-1]
		if !pools[0].has(ent) || !pools[1].has(ent) || !pools[2].has(ent) {
			continue
		}
		fn(ent, Get[A](r, ent, ca), Get[B](r, ent, cb), Get[C](r, ent, cc))
	}
}

// EachInRange calls fn for the elements of kind comp inside subpool range
// id, in storage order.
func EachInRange[A any](r *Registry, comp, id uint32, fn func(EntityID, *A)) {
	col := columnOf[A](r, "EachInRange", comp)
	pool := &r.pools[comp]
	rng := r.SubpoolRange(comp, id)
	for i := rng.Start; i < rng.End; i++ {
		fn(pool.dense[i], &col.data[i])
	}
}
