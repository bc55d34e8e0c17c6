package queue

import (
	"cmp"
	"slices"

	"shadow-engine/materials"
	"shadow-engine/scene"
)

// SortOrder selects how a collection is ordered before rendering.
type SortOrder int

const (
	// SortPassGroup groups entries that share a pass, keeping insertion order otherwise.
	SortPassGroup SortOrder = iota
	// SortDescending draws the farthest entries first.
	SortDescending
	// SortAscending draws the nearest entries first.
	SortAscending
)

// RenderablePass pairs a renderable with the pass to draw it with.
type RenderablePass struct {
	Renderable Renderable
	Pass       *materials.Pass
}

// Collection is an ordered list of renderable/pass pairs.
type Collection struct {
	items []RenderablePass
}

func (c *Collection) Add(r Renderable, p *materials.Pass) {
	c.items = append(c.items, RenderablePass{Renderable: r, Pass: p})
}

func (c *Collection) Len() int { return len(c.items) }

func (c *Collection) Clear() { c.items = c.items[:0] }

// Items returns the entries in their current order.
func (c *Collection) Items() []RenderablePass { return c.items }

// Sort orders the collection for cam. Equal entries keep their relative order.
func (c *Collection) Sort(order SortOrder, cam *scene.Camera) {
	switch order {
	case SortPassGroup:
		rank := make(map[*materials.Pass]int)
		for _, it := range c.items {
			if _, ok := rank[it.Pass]; !ok {
				rank[it.Pass] = len(rank)
			}
		}
		slices.SortStableFunc(c.items, func(a, b RenderablePass) int {
			return cmp.Compare(rank[a.Pass], rank[b.Pass])
		})
	case SortDescending, SortAscending:
		if cam == nil {
			return
		}
		dist := func(rp RenderablePass) float32 {
			return rp.Renderable.WorldBoundingBox().Center().DistanceSqr(cam.Position)
		}
		slices.SortStableFunc(c.items, func(a, b RenderablePass) int {
			if order == SortDescending {
				return cmp.Compare(dist(b), dist(a))
			}
			return cmp.Compare(dist(a), dist(b))
		})
	}
}

// PriorityGroup holds the collections of one priority within a group.
type PriorityGroup struct {
	Priority uint16

	SolidsBasic           Collection
	SolidsDiffuseSpecular Collection
	SolidsDecal           Collection
	SolidsNoShadowReceive Collection
	TransparentsUnsorted  Collection
	Transparents          Collection
}

func (pg *PriorityGroup) add(r Renderable, tech *materials.Technique, splitLighting, splitNoShadow bool) {
	if tech == nil {
		return
	}
	if isTransparent(tech) {
		target := &pg.TransparentsUnsorted
		if needsDepthSort(tech) {
			target = &pg.Transparents
		}
		for _, p := range tech.Passes {
			target.Add(r, p)
		}
		return
	}

	if splitNoShadow && !r.ReceivesShadows() {
		for _, p := range tech.Passes {
			pg.SolidsNoShadowReceive.Add(r, p)
		}
		return
	}

	if !splitLighting {
		for _, p := range tech.Passes {
			pg.SolidsBasic.Add(r, p)
		}
		return
	}
	for _, ip := range materials.SplitIllumination(tech) {
		switch ip.Stage {
		case materials.IlluminationAmbient:
			pg.SolidsBasic.Add(r, ip.Pass)
		case materials.IlluminationPerLight:
			pg.SolidsDiffuseSpecular.Add(r, ip.Pass)
		case materials.IlluminationDecal:
			pg.SolidsDecal.Add(r, ip.Pass)
		}
	}
}

// Sort sorts every collection for cam; solids by pass, transparents back to front.
func (pg *PriorityGroup) Sort(order SortOrder, cam *scene.Camera) {
	pg.SolidsBasic.Sort(order, cam)
	pg.SolidsDiffuseSpecular.Sort(order, cam)
	pg.SolidsDecal.Sort(order, cam)
	pg.SolidsNoShadowReceive.Sort(order, cam)
	pg.Transparents.Sort(SortDescending, cam)
}

func isTransparent(t *materials.Technique) bool {
	if len(t.Passes) == 0 {
		return false
	}
	for _, p := range t.Passes {
		if !p.IsTransparent() {
			return false
		}
	}
	return true
}

// needsDepthSort reports whether a transparent technique relies on draw order.
func needsDepthSort(t *materials.Technique) bool {
	for _, p := range t.Passes {
		if !p.DepthWrite || !p.DepthCheck || !p.ColourWrite {
			return true
		}
	}
	return false
}
