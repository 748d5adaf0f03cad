package ecs

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Format renders the element p points to with the kind's String callback,
// falling back to %v of the element.
func (c *Component) Format(p any) string {
	if c.str != nil {
		return c.str(p)
	}
	if v := reflect.ValueOf(p); v.Kind() == reflect.Pointer && !v.IsNil() {
		return fmt.Sprintf("%v", v.Elem().Interface())
	}
	return fmt.Sprintf("%v", p)
}

func (r *Registry) nameWidth() int {
	w := 0
	for i := range r.components {
		w = max(w, runewidth.StringWidth(r.components[i].Name))
	}
	return w
}

func entName(ent EntityID) string {
	if ent == NullEnt {
		return "null"
	}
	return fmt.Sprintf("%d.%d", ent.Generation(), ent.Index())
}

// PrintEntity writes ent and every component it has, one per line.
func (r *Registry) PrintEntity(w io.Writer, ent EntityID) {
	if !r.EntValid(ent) {
		fmt.Fprintf(w, "entity %s: invalid\n", entName(ent))
		return
	}
	fmt.Fprintf(w, "entity %s\n", entName(ent))
	width := r.nameWidth()
	for i := range r.pools {
		pool := &r.pools[i]
		if !pool.has(ent) {
			continue
		}
		c := &r.components[i]
		ind := pool.sparse[ent.Index()]
		fmt.Fprintf(w, "  %s %4d %s\n",
			runewidth.FillRight(c.Name, width), ind, c.Format(pool.data.ptr(ind)))
	}
}

// PrintRegistry writes a summary of the id pool and of every component
// pool, including subpool range ends.
func (r *Registry) PrintRegistry(w io.Writer) {
	fmt.Fprintf(w, "registry %q: %d live entities, %d ids, %d free\n",
		r.name, r.entities.Live(), r.entities.NumIDs(), r.entities.Available())
	width := r.nameWidth()
	for i := range r.pools {
		pool := &r.pools[i]
		sp := &r.subpools[i]
		line := fmt.Sprintf("  %s %6d/%-6d", runewidth.FillRight(r.components[i].Name, width),
			pool.count, pool.Capacity())
		if ends := sp.Ends(); len(ends) > 0 {
			s := make([]string, len(ends))
			for j, e := range ends {
				s[j] = fmt.Sprint(e)
			}
			line += " ranges [" + strings.Join(s, " ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}

// Dump writes one row per slot: back reference index, parent, first child,
// child count, next sibling, last child, entity and name.
func (h *Hierarchy) Dump(w io.Writer) {
	names := make([]string, h.num)
	width := runewidth.StringWidth("name")
	for i := uint32(0); i < h.num; i++ {
		names[i] = "null"
		ent := h.ent[i]
		if h.reg.EntValid(ent) && h.reg.pools[CompName].has(ent) {
			names[i] = *Get[string](h.reg, ent, CompName)
		}
		width = max(width, runewidth.StringWidth(names[i]))
	}
	fmt.Fprintf(w, "%s (%s)\n", h, entName(h.id))
	fmt.Fprintf(w, "in: %4s %4s %4s %4s %4s %4s %8s %s\n",
		"ri", "pa", "ci", "cc", "ni", "li", "en", runewidth.FillRight("name", width))
	for i := uint32(0); i < h.num; i++ {
		ri := "-"
		if ref := h.ref(h.ent[i]); ref != nil {
			ri = fmtIndex(ref.Index)
		}
		fmt.Fprintf(w, "%2d: %4s %4s %4s %4d %4s %4s %8s %s\n", i, ri,
			fmtIndex(h.parentIndex[i]), fmtIndex(h.childIndex[i]), h.childCount[i],
			fmtIndex(h.nextIndex[i]), fmtIndex(h.lastIndex[i]),
			entName(h.ent[i]), runewidth.FillRight(names[i], width))
	}
}

func fmtIndex(i uint32) string {
	if i == NullIndex {
		return "n"
	}
	return fmt.Sprint(i)
}
