package ecs

import "go.uber.org/zap"

// GroupOwnership says how much of its members' storage order a group claims.
type GroupOwnership int

const (
	GroupFullOwn GroupOwnership = iota
	GroupPartOwn
	GroupNonOwn
)

func (o GroupOwnership) String() string {
	switch o {
	case GroupFullOwn:
		return "full"
	case GroupPartOwn:
		return "partial"
	case GroupNonOwn:
		return "none"
	}
	return "unknown"
}

// GroupComponent records which of a component's subpool ranges a group uses.
type GroupComponent struct {
	Component uint32
	RangeID   uint32
}

var (
	groupComponentsKind = ComponentDef[GroupComponent]{Name: "components in group"}.Component()
	componentGroupsKind = ComponentDef[uint32]{Name: "groups component is in"}.Component()
)

// groups is the registry's group bookkeeping. groupComponents holds one
// range per group (in the groups subpool) listing its members in definition
// order; componentGroups holds one range per component (in the components
// subpool, range id == component index) listing the groups it is in.
// Neither pool is keyed by entity, so their sparse arrays stay nil.
type groups struct {
	groups          Subpool
	components      Subpool
	groupComponents Pool
	componentGroups Pool
	ownership       []GroupOwnership
}

func newGroups(grow, rangeGrow uint32) groups {
	return groups{
		groups:          newSubpool(rangeGrow),
		components:      newSubpool(rangeGrow),
		groupComponents: Pool{data: groupComponentsKind.newColumn(), grow: grow},
		componentGroups: Pool{data: componentGroupsKind.newColumn(), grow: grow},
	}
}

// DefineGroup creates a group over comps. Each member gets a fresh subpool
// range of its own; a component whose kind assigns ranges itself cannot
// join a group. Member order is kept and is the order of GroupRanges.
func (r *Registry) DefineGroup(comps []uint32, ownership GroupOwnership) uint32 {
	for _, comp := range comps {
		c := r.component("DefineGroup", comp)
		if c.RangeID != nil {
			r.fatalf("DefineGroup", "adding component %s with subpools to group", c.Name)
		}
	}
	g := &r.groups
	gid := g.groups.newRange()
	gind := EntityID(gid).Index()
	for uint32(len(g.ownership)) <= gind {
		g.ownership = append(g.ownership, GroupFullOwn)
	}
	g.ownership[gind] = ownership

	gc := &g.groupComponents
	for _, comp := range comps {
		ind := gc.expand(1)
		gc.dense[ind] = 0
		ind = gc.insertInRange(&g.groups, gid, ind)
		gc.data.store(ind, GroupComponent{
			Component: comp,
			RangeID:   r.subpools[comp].newRange(),
		})
	}
	cg := &g.componentGroups
	for _, comp := range comps {
		ind := cg.expand(1)
		cg.dense[ind] = 0
		ind = cg.insertInRange(&g.components, comp, ind)
		cg.data.store(ind, gid)
	}
	r.log.Debug("group defined",
		zap.Uint32("group", gid),
		zap.Uint32s("components", comps),
		zap.Stringer("ownership", ownership))
	return gid
}

// GroupComponents lists group gid's members and their range ids in
// definition order.
func (r *Registry) GroupComponents(gid uint32) []GroupComponent {
	g := &r.groups
	if !g.groups.valid(gid) {
		r.fatalf("GroupComponents", "invalid group %#x", gid)
	}
	rng := g.groups.Range(gid)
	col := g.groupComponents.data.(*Column[GroupComponent])
	out := make([]GroupComponent, rng.Len())
	copy(out, col.data[rng.Start:rng.End])
	return out
}

// ComponentGroups lists the groups comp is a member of.
func (r *Registry) ComponentGroups(comp uint32) []uint32 {
	r.component("ComponentGroups", comp)
	rng := r.groups.components.Range(comp)
	col := r.groups.componentGroups.data.(*Column[uint32])
	out := make([]uint32, rng.Len())
	copy(out, col.data[rng.Start:rng.End])
	return out
}

// GroupOwnership reports how group gid was defined.
func (r *Registry) GroupOwnership(gid uint32) GroupOwnership {
	if !r.groups.groups.valid(gid) {
		r.fatalf("GroupOwnership", "invalid group %#x", gid)
	}
	return r.groups.ownership[EntityID(gid).Index()]
}

// GroupRanges returns, per member in definition order, the dense interval
// the group occupies in that member's pool. Entities added with AddGroup
// sit at the same offset within every one of these intervals.
func (r *Registry) GroupRanges(gid uint32) []Range {
	members := r.GroupComponents(gid)
	out := make([]Range, len(members))
	for i, m := range members {
		out[i] = r.subpools[m.Component].Range(m.RangeID)
	}
	return out
}

// AddGroup gives ent every component of group gid, placing each element at
// the end of the group's range. Components ent already has are moved into
// the range; they must not currently sit in another group's range.
func (r *Registry) AddGroup(ent EntityID, gid uint32) {
	if !r.EntValid(ent) {
		r.fatalf("AddGroup", "invalid entity %#x", uint32(ent))
	}
	for _, m := range r.GroupComponents(gid) {
		pool := &r.pools[m.Component]
		sp := &r.subpools[m.Component]
		if pool.has(ent) {
			ind := pool.sparse[ent.Index()]
			if rng := sp.Range(m.RangeID); ind >= rng.Start && ind < rng.End {
				continue
			}
			v := pool.data.load(ind)
			pool.vacate(sp, ind)
			ind = pool.expand(1)
			pool.dense[ind] = ent
			pool.sparse[ent.Index()] = ind
			ind = pool.insertInRange(sp, m.RangeID, ind)
			pool.dense[ind] = ent
			pool.sparse[ent.Index()] = ind
			pool.data.store(ind, v)
			continue
		}
		r.addComponent(ent, m.Component, m.RangeID, true)
	}
}

// RemoveGroup moves ent's group gid components out of the group's ranges to
// the unranged end of each pool. The components themselves are kept.
func (r *Registry) RemoveGroup(ent EntityID, gid uint32) {
	for _, m := range r.GroupComponents(gid) {
		pool := &r.pools[m.Component]
		sp := &r.subpools[m.Component]
		if !pool.has(ent) {
			continue
		}
		ind := pool.sparse[ent.Index()]
		if rng := sp.Range(m.RangeID); ind < rng.Start || ind >= rng.End {
			continue
		}
		v := pool.data.load(ind)
		pool.vacate(sp, ind)
		ind = pool.expand(1)
		pool.dense[ind] = ent
		pool.sparse[ent.Index()] = ind
		pool.data.store(ind, v)
	}
}

// leaveGroups takes ent out of every group whose range holds its comp
// element, so the group's other members stay co-indexed once comp is gone.
func (r *Registry) leaveGroups(ent EntityID, comp uint32) {
	pool := &r.pools[comp]
	sp := &r.subpools[comp]
	for _, gid := range r.ComponentGroups(comp) {
		for _, m := range r.GroupComponents(gid) {
			if m.Component != comp {
				continue
			}
			ind := pool.sparse[ent.Index()]
			if rng := sp.Range(m.RangeID); ind >= rng.Start && ind < rng.End {
				r.RemoveGroup(ent, gid)
			}
		}
	}
}
