// Package queue sorts renderables into groups and priorities for one frame.
package queue

import (
	"cmp"
	"slices"

	"shadow-engine/materials"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// Renderable is anything the queue can draw.
type Renderable interface {
	Name() string
	Material() *materials.Material
	RenderOperation() renderer.RenderOperation
	WorldBoundingBox() scene.AABB
	// Lights returns the lights affecting the renderable, nearest first.
	Lights() []*scene.Light
	CastsShadows() bool
	ReceivesShadows() bool
}

// Well-known group IDs. Groups render in ascending ID order.
const (
	GroupBackground uint8 = 0
	GroupMain       uint8 = 50
	GroupOverlay    uint8 = 100
)

// DefaultPriority is the priority used when none is given.
const DefaultPriority uint16 = 100

// Group holds the priority groups of one render queue group.
type Group struct {
	ID             uint8
	ShadowsEnabled bool

	// SplitPassesByLighting routes lit passes through
	// materials.SplitIllumination, as additive shadows need.
	SplitPassesByLighting bool
	// SplitNoShadow separates solids that do not receive shadows.
	SplitNoShadow bool

	priorities map[uint16]*PriorityGroup
}

func NewGroup(id uint8) *Group {
	return &Group{
		ID:             id,
		ShadowsEnabled: id != GroupBackground && id != GroupOverlay,
		priorities:     make(map[uint16]*PriorityGroup),
	}
}

// Add queues r with the given technique at priority.
func (g *Group) Add(r Renderable, tech *materials.Technique, priority uint16) {
	pg, ok := g.priorities[priority]
	if !ok {
		pg = &PriorityGroup{Priority: priority}
		g.priorities[priority] = pg
	}
	pg.add(r, tech, g.SplitPassesByLighting, g.SplitNoShadow)
}

// PriorityGroups returns the priority groups in ascending priority.
func (g *Group) PriorityGroups() []*PriorityGroup {
	out := make([]*PriorityGroup, 0, len(g.priorities))
	for _, pg := range g.priorities {
		out = append(out, pg)
	}
	slices.SortFunc(out, func(a, b *PriorityGroup) int { return cmp.Compare(a.Priority, b.Priority) })
	return out
}

func (g *Group) Clear() {
	clear(g.priorities)
}

// Queue is the frame's set of groups.
type Queue struct {
	groups map[uint8]*Group

	SplitPassesByLighting bool
	SplitNoShadow         bool
}

func NewQueue() *Queue {
	return &Queue{groups: make(map[uint8]*Group)}
}

// Group returns the group with id, creating it on first use.
func (q *Queue) Group(id uint8) *Group {
	g, ok := q.groups[id]
	if !ok {
		g = NewGroup(id)
		q.groups[id] = g
	}
	g.SplitPassesByLighting = q.SplitPassesByLighting && g.ShadowsEnabled
	g.SplitNoShadow = q.SplitNoShadow && g.ShadowsEnabled
	return g
}

// Add queues r into group id.
func (q *Queue) Add(r Renderable, id uint8, priority uint16, tech *materials.Technique) {
	q.Group(id).Add(r, tech, priority)
}

// Groups returns the groups in ascending ID order.
func (q *Queue) Groups() []*Group {
	out := make([]*Group, 0, len(q.groups))
	for _, g := range q.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Group) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Clear empties every group but keeps their settings.
func (q *Queue) Clear() {
	for _, g := range q.groups {
		g.Clear()
	}
}
