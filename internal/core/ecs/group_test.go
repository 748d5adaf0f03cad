package ecs

import (
	"slices"
	"testing"
)

func newGroupRegistry(t *testing.T) (*Registry, uint32, uint32, uint32) {
	t.Helper()
	reg := NewRegistry("groups")
	base := reg.RegisterComponents(
		ComponentDef[int]{Name: "A1"}.Component(),
		ComponentDef[float64]{Name: "A2"}.Component(),
		ComponentDef[string]{Name: "A3"}.Component(),
	)
	reg.CreateComponentPools()
	return reg, base, base + 1, base + 2
}

func TestDefineGroup(t *testing.T) {
	reg, a1, a2, a3 := newGroupRegistry(t)
	defer reg.Delete()

	gid := reg.DefineGroup([]uint32{a1, a2}, GroupFullOwn)
	want := []GroupComponent{{Component: a1, RangeID: 0}, {Component: a2, RangeID: 0}}
	if got := reg.GroupComponents(gid); !slices.Equal(got, want) {
		t.Fatalf("GroupComponents = %v, want %v", got, want)
	}
	for _, comp := range []uint32{a1, a2} {
		if got := reg.ComponentGroups(comp); !slices.Equal(got, []uint32{gid}) {
			t.Fatalf("ComponentGroups(%d) = %v, want [%d]", comp, got, gid)
		}
	}
	if got := reg.ComponentGroups(a3); len(got) != 0 {
		t.Fatalf("ComponentGroups(A3) = %v, want none", got)
	}
	if reg.GroupOwnership(gid) != GroupFullOwn {
		t.Fatalf("ownership = %v", reg.GroupOwnership(gid))
	}

	g2 := reg.DefineGroup([]uint32{a2, a3}, GroupPartOwn)
	want2 := []GroupComponent{{Component: a2, RangeID: 1}, {Component: a3, RangeID: 0}}
	if got := reg.GroupComponents(g2); !slices.Equal(got, want2) {
		t.Fatalf("GroupComponents(g2) = %v, want %v", got, want2)
	}
	if got := reg.ComponentGroups(a2); !slices.Equal(got, []uint32{gid, g2}) {
		t.Fatalf("ComponentGroups(A2) = %v", got)
	}
	// the first group's bookkeeping is untouched
	if got := reg.GroupComponents(gid); !slices.Equal(got, want) {
		t.Fatalf("GroupComponents(g1) after g2 = %v", got)
	}
	if reg.GroupOwnership(g2).String() != "partial" {
		t.Fatalf("g2 ownership = %v", reg.GroupOwnership(g2))
	}
}

func TestDefineGroupRejectsRangedComponent(t *testing.T) {
	reg := NewRegistry("groups")
	comp := reg.RegisterComponents(ComponentDef[int]{
		Name:    "ranged",
		RangeID: func(*Registry, EntityID, uint32) uint32 { return 0 },
	}.Component())
	reg.CreateComponentPools()
	defer reg.Delete()
	expectFatal(t, "DefineGroup", func() {
		reg.DefineGroup([]uint32{comp}, GroupNonOwn)
	})
}

func TestAddGroupCoIndexes(t *testing.T) {
	reg, a1, a2, _ := newGroupRegistry(t)
	defer reg.Delete()
	gid := reg.DefineGroup([]uint32{a1, a2}, GroupFullOwn)

	// loose elements first so the group range has to make room
	var loose []EntityID
	for i := 0; i < 3; i++ {
		ent := reg.NewEntity()
		Set(reg, ent, a1, 100+i)
		loose = append(loose, ent)
	}
	looseA2 := reg.NewEntity()
	Set(reg, looseA2, a2, 9.5)

	var members []EntityID
	for i := 0; i < 3; i++ {
		ent := reg.NewEntity()
		if i == 1 {
			// already has A1 outside the group
			Set(reg, ent, a1, 42)
		}
		reg.AddGroup(ent, gid)
		members = append(members, ent)
	}
	ranges := reg.GroupRanges(gid)
	for _, rng := range ranges {
		if rng.Len() != 3 {
			t.Fatalf("group ranges = %v, want 3 members each", ranges)
		}
	}
	for _, ent := range members {
		i1 := reg.Pool(a1).sparse[ent.Index()] - ranges[0].Start
		i2 := reg.Pool(a2).sparse[ent.Index()] - ranges[1].Start
		if i1 != i2 {
			t.Fatalf("entity %#x at offsets %d and %d", uint32(ent), i1, i2)
		}
	}
	if *Get[int](reg, members[1], a1) != 42 {
		t.Fatal("AddGroup lost existing data")
	}
	for i, ent := range loose {
		if *Get[int](reg, ent, a1) != 100+i {
			t.Fatalf("loose entity %d data changed", i)
		}
	}
	checkPool(t, reg, a1)
	checkPool(t, reg, a2)

	reg.RemoveGroup(members[0], gid)
	ranges = reg.GroupRanges(gid)
	if ranges[0].Len() != 2 || ranges[1].Len() != 2 {
		t.Fatalf("ranges after RemoveGroup = %v", ranges)
	}
	if !reg.HasComponent(members[0], a1) || !reg.HasComponent(members[0], a2) {
		t.Fatal("RemoveGroup dropped components")
	}
	checkPool(t, reg, a1)
	checkPool(t, reg, a2)

	reg.DelEntity(members[2])
	ranges = reg.GroupRanges(gid)
	if ranges[0].Len() != 1 || ranges[1].Len() != 1 {
		t.Fatalf("ranges after DelEntity = %v", ranges)
	}
	checkPool(t, reg, a1)
	checkPool(t, reg, a2)
}

func TestRemoveComponentLeavesGroup(t *testing.T) {
	reg, a1, a2, _ := newGroupRegistry(t)
	defer reg.Delete()
	gid := reg.DefineGroup([]uint32{a1, a2}, GroupFullOwn)

	var members []EntityID
	for i := 0; i < 5; i++ {
		ent := reg.NewEntity()
		reg.AddGroup(ent, gid)
		*Get[int](reg, ent, a1) = i
		members = append(members, ent)
	}

	reg.RemoveComponent(members[4], a2)
	ranges := reg.GroupRanges(gid)
	if ranges[0].Len() != 4 || ranges[1].Len() != 4 {
		t.Fatalf("GroupRanges = %v, want 4 members each", ranges)
	}
	if !reg.HasComponent(members[4], a1) || reg.HasComponent(members[4], a2) {
		t.Fatal("wrong components left on the removed member")
	}
	if ind := reg.Pool(a1).sparse[members[4].Index()]; ind < ranges[0].End {
		t.Fatalf("A1 of removed member still in group range at %d", ind)
	}

	reg.RemoveComponent(members[1], a1)
	ranges = reg.GroupRanges(gid)
	if ranges[0].Len() != 3 || ranges[1].Len() != 3 {
		t.Fatalf("GroupRanges = %v, want 3 members each", ranges)
	}
	for _, ent := range []EntityID{members[0], members[2], members[3]} {
		i1 := reg.Pool(a1).sparse[ent.Index()] - ranges[0].Start
		i2 := reg.Pool(a2).sparse[ent.Index()] - ranges[1].Start
		if i1 != i2 {
			t.Fatalf("entity %#x at offsets %d and %d", uint32(ent), i1, i2)
		}
	}
	if *Get[int](reg, members[4], a1) != 4 {
		t.Fatal("A1 data lost when leaving the group")
	}
	checkPool(t, reg, a1)
	checkPool(t, reg, a2)
}
