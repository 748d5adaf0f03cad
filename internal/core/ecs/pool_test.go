package ecs

import (
	"bytes"
	"strings"
	"testing"
)

type position struct{ X, Y int }

type velocity struct{ DX, DY int }

type counters struct {
	created   int
	destroyed int
}

// newTestRegistry registers position (with counted callbacks) and velocity
// after the built-in components.
func newTestRegistry(t *testing.T, cnt *counters) (*Registry, uint32, uint32) {
	t.Helper()
	reg := NewRegistry("test")
	base := reg.RegisterComponents(
		ComponentDef[position]{
			Name: "position",
			Create: func(_ *Registry, p *position) {
				cnt.created++
				p.X = -1
			},
			Destroy: func(_ *Registry, p *position) { cnt.destroyed++ },
		}.Component(),
		ComponentDef[velocity]{Name: "velocity"}.Component(),
	)
	reg.CreateComponentPools()
	return reg, base, base + 1
}

// checkPool asserts the sparse/dense bijection of pool comp.
func checkPool(t *testing.T, reg *Registry, comp uint32) {
	t.Helper()
	pool := reg.Pool(comp)
	for i, ent := range pool.Dense() {
		if got := pool.sparse[ent.Index()]; got != uint32(i) {
			t.Fatalf("%s: sparse[%d] = %d, want %d", reg.Component(comp).Name, ent.Index(), got, i)
		}
		if !reg.HasComponent(ent, comp) {
			t.Fatalf("%s: dense entity %#x not reported present", reg.Component(comp).Name, uint32(ent))
		}
	}
}

func TestBuiltinComponents(t *testing.T) {
	reg, pos, _ := newTestRegistry(t, &counters{})
	defer reg.Delete()
	if pos != CompCount {
		t.Fatalf("first user component = %d, want %d", pos, CompCount)
	}
	if reg.Component(CompName).Name != "name" || reg.Component(CompHierarchy).Name != "hierarchy" {
		t.Fatal("built-in components missing")
	}
	if !reg.Component(CompHierarchy).HasDestroy() {
		t.Fatal("hierarchy component has no destroy callback")
	}
}

func TestAddComponentIdempotent(t *testing.T) {
	cnt := &counters{}
	reg, pos, _ := newTestRegistry(t, cnt)
	defer reg.Delete()

	ent := reg.NewEntity()
	p1 := Add[position](reg, ent, pos)
	if p1.X != -1 {
		t.Fatalf("create not run: %+v", *p1)
	}
	p1.Y = 7
	p2 := Add[position](reg, ent, pos)
	if p1 != p2 {
		t.Fatal("second AddComponent returned a different element")
	}
	if cnt.created != 1 || p2.Y != 7 {
		t.Fatalf("created = %d, Y = %d; want 1, 7", cnt.created, p2.Y)
	}
}

func TestSetAndGet(t *testing.T) {
	reg, pos, vel := newTestRegistry(t, &counters{})
	defer reg.Delete()

	ent := reg.NewEntity()
	Set(reg, ent, pos, position{X: 3, Y: 4})
	Set(reg, ent, CompName, "ship")
	if got := *Get[position](reg, ent, pos); got != (position{3, 4}) {
		t.Fatalf("Get = %+v", got)
	}
	if Get[velocity](reg, ent, vel) != nil {
		t.Fatal("Get of absent component returned non-nil")
	}
	if reg.SafeGetComponent(ent, vel) != nil {
		t.Fatal("SafeGetComponent of absent component returned non-nil")
	}
	if p, ok := reg.GetComponent(ent, CompName).(*string); !ok || *p != "ship" {
		t.Fatalf("GetComponent(name) = %v", p)
	}
	expectFatal(t, "GetComponent", func() { reg.GetComponent(ent, vel) })
}

func TestRemoveComponentSwapRemove(t *testing.T) {
	cnt := &counters{}
	reg, pos, _ := newTestRegistry(t, cnt)
	defer reg.Delete()

	var ents []EntityID
	for i := 0; i < 6; i++ {
		ent := reg.NewEntity()
		Set(reg, ent, pos, position{X: i})
		ents = append(ents, ent)
	}
	reg.RemoveComponent(ents[1], pos)
	reg.RemoveComponent(ents[4], pos)
	// absent: no-op
	reg.RemoveComponent(ents[1], pos)

	if cnt.destroyed != 2 {
		t.Fatalf("destroyed = %d, want 2", cnt.destroyed)
	}
	pool := reg.Pool(pos)
	if pool.Count() != 4 {
		t.Fatalf("count = %d, want 4", pool.Count())
	}
	checkPool(t, reg, pos)
	for _, i := range []int{0, 2, 3, 5} {
		if got := Get[position](reg, ents[i], pos).X; got != i {
			t.Fatalf("entity %d data = %d after removals", i, got)
		}
	}
}

func TestDelEntityRemovesComponents(t *testing.T) {
	cnt := &counters{}
	reg, pos, vel := newTestRegistry(t, cnt)
	defer reg.Delete()

	ent := reg.NewEntity()
	Add[position](reg, ent, pos)
	Add[velocity](reg, ent, vel)
	other := reg.NewEntity()
	Add[position](reg, other, pos)

	reg.DelEntity(ent)
	if cnt.destroyed != 1 {
		t.Fatalf("destroyed = %d, want 1", cnt.destroyed)
	}
	if reg.Pool(pos).Count() != 1 || reg.Pool(vel).Count() != 0 {
		t.Fatalf("counts pos=%d vel=%d", reg.Pool(pos).Count(), reg.Pool(vel).Count())
	}
	checkPool(t, reg, pos)
}

func TestRegistryDeleteDestroysEverything(t *testing.T) {
	cnt := &counters{}
	reg, pos, _ := newTestRegistry(t, cnt)
	for i := 0; i < 40; i++ {
		Add[position](reg, reg.NewEntity(), pos)
	}
	reg.Delete()
	if cnt.destroyed != 40 {
		t.Fatalf("destroyed = %d, want 40", cnt.destroyed)
	}
}

func TestRemoveEntities(t *testing.T) {
	cnt := &counters{}
	reg, pos, vel := newTestRegistry(t, cnt)
	defer reg.Delete()
	ent := reg.NewEntity()
	Add[position](reg, ent, pos)
	Add[velocity](reg, ent, vel)
	Add[position](reg, reg.NewEntity(), pos)

	reg.RemoveEntities(pos)
	if reg.Pool(pos).Count() != 0 || cnt.destroyed != 2 {
		t.Fatalf("count=%d destroyed=%d", reg.Pool(pos).Count(), cnt.destroyed)
	}
	if !reg.EntValid(ent) || !reg.HasComponent(ent, vel) {
		t.Fatal("RemoveEntities touched the entity or its other components")
	}
}

func TestPoolGrowth(t *testing.T) {
	reg := NewRegistryWith("grow", Tunables{EntityGrow: 4, ComponentGrow: 4}, nil)
	pos := reg.RegisterComponents(ComponentDef[position]{Name: "position"}.Component())
	reg.CreateComponentPools()
	defer reg.Delete()

	var ents []EntityID
	for i := 0; i < 37; i++ {
		ent := reg.NewEntity()
		Set(reg, ent, pos, position{X: i})
		ents = append(ents, ent)
	}
	if c := reg.Pool(pos).Capacity(); c != 40 {
		t.Fatalf("capacity = %d, want 40", c)
	}
	checkPool(t, reg, pos)
	for i, ent := range ents {
		if Get[position](reg, ent, pos).X != i {
			t.Fatalf("entity %d lost its data across growth", i)
		}
	}
}

func TestContractViolations(t *testing.T) {
	reg, pos, _ := newTestRegistry(t, &counters{})
	defer reg.Delete()

	expectFatal(t, "RegisterComponents", func() {
		reg.RegisterComponents(ComponentDef[int]{Name: "late"}.Component())
	})
	expectFatal(t, "HasComponent", func() { reg.HasComponent(0, 99) })

	ent := reg.NewEntity()
	reg.DelEntity(ent)
	expectFatal(t, "AddComponent", func() { reg.AddComponent(ent, pos) })
	expectFatal(t, "Get", func() { Get[velocity](reg, reg.NewEntity(), pos) })
}

func TestSortComponents(t *testing.T) {
	reg, pos, _ := newTestRegistry(t, &counters{})
	defer reg.Delete()

	xs := []int{5, 3, 9, 1, 7, 2}
	ents := make(map[int]EntityID)
	for _, x := range xs {
		ent := reg.NewEntity()
		Set(reg, ent, pos, position{X: x})
		ents[x] = ent
	}
	SortComponents(reg, pos, func(a, b *position) int { return a.X - b.X })

	data := Data[position](reg, pos)
	for i := 1; i < len(data); i++ {
		if data[i-1].X > data[i].X {
			t.Fatalf("not sorted: %v", data)
		}
	}
	checkPool(t, reg, pos)
	for x, ent := range ents {
		if Get[position](reg, ent, pos).X != x {
			t.Fatalf("entity for %d now holds %d", x, Get[position](reg, ent, pos).X)
		}
	}
}

func TestEachQueries(t *testing.T) {
	reg, pos, vel := newTestRegistry(t, &counters{})
	defer reg.Delete()

	both := reg.NewEntity()
	Set(reg, both, pos, position{X: 1})
	Set(reg, both, vel, velocity{DX: 2})
	onlyPos := reg.NewEntity()
	Set(reg, onlyPos, pos, position{X: 10})

	n := 0
	Each2(reg, pos, vel, func(ent EntityID, p *position, v *velocity) {
		if ent != both {
			t.Fatalf("Each2 visited %#x", uint32(ent))
		}
		p.X += v.DX
		n++
	})
	if n != 1 || Get[position](reg, both, pos).X != 3 {
		t.Fatalf("Each2 visits=%d X=%d", n, Get[position](reg, both, pos).X)
	}

	Set(reg, both, CompName, "both")
	n = 0
	Each3(reg, pos, vel, CompName, func(ent EntityID, _ *position, _ *velocity, name *string) {
		if *name != "both" {
			t.Fatalf("Each3 name %q", *name)
		}
		n++
	})
	if n != 1 {
		t.Fatalf("Each3 visits = %d", n)
	}

	// removing the current element is allowed
	Each(reg, pos, func(ent EntityID, p *position) {
		if p.X >= 10 {
			reg.RemoveComponent(ent, pos)
		}
	})
	if reg.HasComponent(onlyPos, pos) || !reg.HasComponent(both, pos) {
		t.Fatal("Each removal went wrong")
	}
}

func TestQueriesRejectBadComponent(t *testing.T) {
	reg, pos, vel := newTestRegistry(t, &counters{})
	defer reg.Delete()
	bad := uint32(len(reg.pools))

	expectFatal(t, "Each", func() {
		Each(reg, bad, func(EntityID, *position) {})
	})
	expectFatal(t, "Each2", func() {
		Each2(reg, pos, bad, func(EntityID, *position, *velocity) {})
	})
	expectFatal(t, "Each2", func() {
		Each2(reg, pos, vel, func(EntityID, *position, *string) {})
	})
	expectFatal(t, "Each3", func() {
		Each3(reg, bad, pos, vel, func(EntityID, *int, *position, *velocity) {})
	})
}

func TestPrintEntity(t *testing.T) {
	reg, pos, _ := newTestRegistry(t, &counters{})
	defer reg.Delete()
	ent := reg.NewEntity()
	Set(reg, ent, CompName, "ship")
	Set(reg, ent, pos, position{X: 1, Y: 2})

	var buf bytes.Buffer
	reg.PrintEntity(&buf, ent)
	out := buf.String()
	if !strings.Contains(out, "ship") || !strings.Contains(out, "{1 2}") {
		t.Fatalf("PrintEntity output:\n%s", out)
	}
	buf.Reset()
	reg.PrintRegistry(&buf)
	if !strings.Contains(buf.String(), "position") {
		t.Fatalf("PrintRegistry output:\n%s", buf.String())
	}
}
