package scene

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/ecscore/internal/core/ecs"
)

// Node is one object of a scene and the objects below it.
type Node struct {
	Name     string `yaml:"name"`
	Children []Node `yaml:"children"`
}

// Scene describes a hierarchy to build.
type Scene struct {
	Name     string `yaml:"name"`
	TreeMode bool   `yaml:"tree_mode"`
	Root     *Node  `yaml:"root"`
}

// Built is the result of Build. Entities are in declaration order, root
// first.
type Built struct {
	Hierarchy ecs.EntityID
	Entities  []ecs.EntityID
}

var ErrNoRoot = errors.New("scene has no root")

// Load reads a scene from a YAML file.
func Load(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

func Parse(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if s.Root == nil {
		return nil, ErrNoRoot
	}
	return &s, nil
}

// Count returns the number of nodes in the scene.
func (s *Scene) Count() int {
	if s.Root == nil {
		return 0
	}
	return s.Root.count()
}

func (n *Node) count() int {
	c := 1
	for i := range n.Children {
		c += n.Children[i].count()
	}
	return c
}

// Build creates one entity per node, each with a name and a back reference
// in hrefComp, and links them into a new hierarchy. Nodes are inserted depth
// first so every node ends up after its earlier siblings.
func (s *Scene) Build(reg *ecs.Registry, hrefComp uint32) (*Built, error) {
	if s.Root == nil {
		return nil, ErrNoRoot
	}
	hent := ecs.NewHierarchy(reg, hrefComp, nil, true)
	h := reg.Hierarchy(hent)
	b := &Built{Hierarchy: hent, Entities: make([]ecs.EntityID, 0, s.Count())}

	root := b.attach(reg, hrefComp, h, s.Root.Name, 0)
	var insert func(parent ecs.EntityID, n *Node)
	insert = func(parent ecs.EntityID, n *Node) {
		for i := range n.Children {
			child := &n.Children[i]
			pref := *ecs.Get[ecs.HierRef](reg, parent, hrefComp)
			ref := reg.InsertHierarchy(pref, ecs.NullHref)
			ent := b.attach(reg, hrefComp, h, child.Name, ref.Index)
			insert(ent, child)
		}
	}
	insert(root, s.Root)

	if s.TreeMode {
		h.SetTreeMode(true)
	}
	reg.Logger().Debug("scene built",
		zap.String("scene", s.Name),
		zap.Uint32("objects", h.Len()),
		zap.Bool("tree", s.TreeMode))
	return b, nil
}

func (b *Built) attach(reg *ecs.Registry, hrefComp uint32, h *ecs.Hierarchy, name string, index uint32) ecs.EntityID {
	ent := reg.NewEntity()
	ecs.Set(reg, ent, ecs.CompName, name)
	ecs.Add[ecs.HierRef](reg, ent, hrefComp)
	h.SetEnt(index, ent)
	b.Entities = append(b.Entities, ent)
	return ent
}
