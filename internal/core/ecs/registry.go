package ecs

import "go.uber.org/zap"

// Default growth chunks.
const (
	DefaultEntityGrow     = 1024
	DefaultComponentGrow  = 128
	DefaultRangeGrow      = 32
	DefaultHierarchyBlock = 16
)

// Tunables are the construction-time sizes a registry grows its arrays by.
type Tunables struct {
	EntityGrow     uint32
	ComponentGrow  uint32
	RangeGrow      uint32
	HierarchyBlock uint32 // power of two
}

func DefaultTunables() Tunables {
	return Tunables{
		EntityGrow:     DefaultEntityGrow,
		ComponentGrow:  DefaultComponentGrow,
		RangeGrow:      DefaultRangeGrow,
		HierarchyBlock: DefaultHierarchyBlock,
	}
}

func (t Tunables) withDefaults() Tunables {
	d := DefaultTunables()
	if t.EntityGrow == 0 {
		t.EntityGrow = d.EntityGrow
	}
	if t.ComponentGrow == 0 {
		t.ComponentGrow = d.ComponentGrow
	}
	if t.RangeGrow == 0 {
		t.RangeGrow = d.RangeGrow
	}
	if t.HierarchyBlock == 0 || t.HierarchyBlock&(t.HierarchyBlock-1) != 0 {
		t.HierarchyBlock = d.HierarchyBlock
	}
	return t
}

// Components available in every registry.
const (
	CompName      uint32 = iota // string
	CompHierarchy               // *Hierarchy
	CompCount
)

func builtinComponents() []Component {
	return []Component{
		CompName: ComponentDef[string]{
			Name:   "name",
			String: func(v *string) string { return *v },
		}.Component(),
		CompHierarchy: ComponentDef[*Hierarchy]{
			Name:    "hierarchy",
			Destroy: destroyHierarchyComponent,
			String:  func(v **Hierarchy) string { return (*v).String() },
		}.Component(),
	}
}

// Registry is the top-level ECS container. It owns the entity ids, one
// sparse-set pool and one subpool per component kind, the group tables and,
// through the hierarchy component, every hierarchy built on it.
type Registry struct {
	name       string
	log        *zap.Logger
	tun        Tunables
	locked     bool
	entities   *IDPool
	components []Component
	pools      []Pool
	subpools   []Subpool
	groups     groups
}

// NewRegistry returns a registry with default tunables and no logging.
func NewRegistry(name string) *Registry {
	return NewRegistryWith(name, DefaultTunables(), nil)
}

func NewRegistryWith(name string, tun Tunables, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	tun = tun.withDefaults()
	r := &Registry{
		name:       name,
		log:        log.With(zap.String("registry", name)),
		tun:        tun,
		entities:   NewIDPool(tun.EntityGrow),
		components: builtinComponents(),
		groups:     newGroups(tun.ComponentGrow, tun.RangeGrow),
	}
	r.log.Debug("registry created",
		zap.Uint32("entity_grow", tun.EntityGrow),
		zap.Uint32("component_grow", tun.ComponentGrow),
		zap.Uint32("range_grow", tun.RangeGrow))
	return r
}

func (r *Registry) Name() string        { return r.name }
func (r *Registry) Logger() *zap.Logger { return r.log }
func (r *Registry) Entities() *IDPool   { return r.entities }

// RegisterComponents appends comps to the component table and returns the
// index of the first one. It must be called before CreateComponentPools.
func (r *Registry) RegisterComponents(comps ...Component) uint32 {
	if r.pools != nil {
		r.fatalf("RegisterComponents", "component pools already created")
	}
	base := uint32(len(r.components))
	for _, c := range comps {
		if c.newColumn == nil {
			r.fatalf("RegisterComponents", "component %q has no storage type", c.Name)
		}
		r.components = append(r.components, c)
		r.log.Debug("component registered",
			zap.String("component", c.Name),
			zap.Uint32("index", uint32(len(r.components)-1)))
	}
	return base
}

// CreateComponentPools freezes the component table and allocates a pool and
// a subpool for every registered kind.
func (r *Registry) CreateComponentPools() {
	if r.pools != nil {
		r.fatalf("CreateComponentPools", "component pools already created")
	}
	n := len(r.components)
	r.pools = make([]Pool, n)
	r.subpools = make([]Subpool, n)
	for i := range r.components {
		r.pools[i] = newPool(&r.components[i], r.tun.ComponentGrow, r.entities.Capacity())
		r.subpools[i] = newSubpool(r.tun.RangeGrow)
		// range id i of the group table lists the groups component i is in
		r.groups.components.newRange()
	}
	r.log.Debug("component pools created", zap.Int("count", n))
}

// NumComponents is the number of registered component kinds.
func (r *Registry) NumComponents() uint32 { return uint32(len(r.components)) }

// Component returns the descriptor of kind comp.
func (r *Registry) Component(comp uint32) *Component {
	return r.component("Component", comp)
}

func (r *Registry) component(op string, comp uint32) *Component {
	if r.pools == nil {
		r.fatalf(op, "component pools not created")
	}
	if comp >= uint32(len(r.components)) {
		r.fatalf(op, "invalid component index %d (have %d)", comp, len(r.components))
	}
	return &r.components[comp]
}

// Pool exposes the sparse set behind kind comp.
func (r *Registry) Pool(comp uint32) *Pool {
	r.component("Pool", comp)
	return &r.pools[comp]
}

// NewEntity allocates an entity id, growing every pool's sparse array when
// the id space grows.
func (r *Registry) NewEntity() EntityID {
	id, grew := r.entities.NewID()
	if grew {
		for i := range r.pools {
			r.pools[i].growSparse(r.entities.Capacity())
		}
	}
	return id
}

// DelEntity frees ent and removes all of its components. Stale ids are
// ignored, as is every call made while the registry is being torn down.
func (r *Registry) DelEntity(ent EntityID) {
	if r.locked {
		// the registry is being deleted and mass entity and component
		// deletions are going on
		return
	}
	if !r.entities.DelID(ent) {
		return
	}
	for i := range r.pools {
		r.RemoveComponent(ent, uint32(i))
	}
}

// EntValid reports whether ent is live.
func (r *Registry) EntValid(ent EntityID) bool {
	return r.entities.Valid(ent)
}

// HasComponent reports whether ent has a comp element.
func (r *Registry) HasComponent(ent EntityID, comp uint32) bool {
	r.component("HasComponent", comp)
	return r.pools[comp].has(ent)
}

// GetComponent returns a pointer to ent's comp element. ent must have one.
// The pointer is invalidated by any add to or remove from the same pool.
func (r *Registry) GetComponent(ent EntityID, comp uint32) any {
	r.component("GetComponent", comp)
	pool := &r.pools[comp]
	if !pool.has(ent) {
		r.fatalf("GetComponent", "entity %#x has no %s", uint32(ent), r.components[comp].Name)
	}
	return pool.data.ptr(pool.sparse[ent.Index()])
}

// SafeGetComponent is GetComponent returning nil for a stale entity or a
// missing element.
func (r *Registry) SafeGetComponent(ent EntityID, comp uint32) any {
	if !r.EntValid(ent) || !r.HasComponent(ent, comp) {
		return nil
	}
	pool := &r.pools[comp]
	return pool.data.ptr(pool.sparse[ent.Index()])
}

// AddComponent attaches a comp element to ent and returns a pointer to it.
// If ent already has one, that element is returned untouched and create is
// not run again.
func (r *Registry) AddComponent(ent EntityID, comp uint32) any {
	c := r.component("AddComponent", comp)
	if !r.EntValid(ent) {
		r.fatalf("AddComponent", "invalid entity %#x", uint32(ent))
	}
	pool := &r.pools[comp]
	if pool.has(ent) {
		return pool.data.ptr(pool.sparse[ent.Index()])
	}
	var rangeid uint32
	if c.RangeID != nil {
		rangeid = c.RangeID(r, ent, comp)
	}
	return r.addComponent(ent, comp, rangeid, c.RangeID != nil)
}

func (r *Registry) addComponent(ent EntityID, comp, rangeid uint32, ranged bool) any {
	c := &r.components[comp]
	pool := &r.pools[comp]
	ind := pool.expand(1)
	pool.sparse[ent.Index()] = ind
	pool.dense[ind] = ent
	if ranged {
		sp := &r.subpools[comp]
		if !sp.valid(rangeid) {
			r.fatalf("AddComponent", "%s: invalid range id %#x", c.Name, rangeid)
		}
		ind = pool.insertInRange(sp, rangeid, ind)
		pool.sparse[ent.Index()] = ind
		pool.dense[ind] = ent
	}
	createElements(r, c, pool.data, ind, 1)
	// create may have touched this pool; look the element up again
	return pool.data.ptr(pool.sparse[ent.Index()])
}

// SetComponent adds comp to ent and overwrites it with v, or, when v is nil,
// re-runs the kind's create callback on it.
func (r *Registry) SetComponent(ent EntityID, comp uint32, v any) any {
	p := r.AddComponent(ent, comp)
	pool := &r.pools[comp]
	ind := pool.sparse[ent.Index()]
	if v != nil {
		pool.data.store(ind, v)
	} else {
		createElements(r, &r.components[comp], pool.data, ind, 1)
	}
	return p
}

// RemoveComponent destroys and detaches ent's comp element. It is a no-op
// when ent has none.
func (r *Registry) RemoveComponent(ent EntityID, comp uint32) {
	c := r.component("RemoveComponent", comp)
	pool := &r.pools[comp]
	if !pool.has(ent) {
		return
	}
	if !r.locked {
		r.leaveGroups(ent, comp)
	}
	if c.destroy != nil {
		c.destroy(r, pool.data.ptr(pool.sparse[ent.Index()]))
		// destroy may have removed other elements of this kind
		if !pool.has(ent) {
			return
		}
	}
	ind := pool.sparse[ent.Index()]
	var sp *Subpool
	if r.subpools[comp].active() > 0 {
		sp = &r.subpools[comp]
	}
	pool.vacate(sp, ind)
	pool.sparse[ent.Index()] = uint32(NullEnt)
}

// RemoveEntities destroys every element of kind comp, leaving the entities
// and their other components alone. Elements are taken from the end so that
// destroy callbacks removing more elements of the same kind stay safe.
func (r *Registry) RemoveEntities(comp uint32) {
	r.component("RemoveEntities", comp)
	pool := &r.pools[comp]
	for pool.count > 0 {
		r.RemoveComponent(pool.dense[pool.count-1], comp)
	}
}

// Delete tears the registry down: every pool is emptied from the last
// registered kind to the first, with entity deletion suppressed so that
// destroy callbacks cannot recurse into the teardown.
func (r *Registry) Delete() {
	if r.pools == nil {
		return
	}
	r.locked = true
	for i := len(r.pools); i > 0; i-- {
		comp := uint32(i - 1)
		r.RemoveEntities(comp)
	}
	r.log.Debug("registry deleted", zap.Uint32("entities", r.entities.Live()))
	r.pools = nil
	r.subpools = nil
	r.entities = NewIDPool(r.tun.EntityGrow)
	r.groups = newGroups(r.tun.ComponentGrow, r.tun.RangeGrow)
	r.locked = false
}

// Get returns a typed pointer to ent's comp element, or nil when ent has
// none.
func Get[T any](r *Registry, ent EntityID, comp uint32) *T {
	col := columnOf[T](r, "Get", comp)
	pool := &r.pools[comp]
	if !pool.has(ent) {
		return nil
	}
	return &col.data[pool.sparse[ent.Index()]]
}

// Add is the typed form of AddComponent.
func Add[T any](r *Registry, ent EntityID, comp uint32) *T {
	columnOf[T](r, "Add", comp)
	return r.AddComponent(ent, comp).(*T)
}

// Set is the typed form of SetComponent with a value.
func Set[T any](r *Registry, ent EntityID, comp uint32, v T) *T {
	columnOf[T](r, "Set", comp)
	return r.SetComponent(ent, comp, v).(*T)
}

// Data returns kind comp's live elements in dense order. The slice aliases
// pool storage.
func Data[T any](r *Registry, comp uint32) []T {
	col := columnOf[T](r, "Data", comp)
	return col.data[:r.pools[comp].count]
}

func columnOf[T any](r *Registry, op string, comp uint32) *Column[T] {
	r.component(op, comp)
	col, ok := r.pools[comp].data.(*Column[T])
	if !ok {
		r.fatalf(op, "component %s does not store %T", r.components[comp].Name, *new(T))
	}
	return col
}
