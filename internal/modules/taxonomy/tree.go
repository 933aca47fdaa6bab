package taxonomy

import (
	"fmt"
	"sort"

	"github.com/edifika/edifika/internal/domain"
)

// Tree is an immutable snapshot of one organization's concept tree.
// Lookups are O(1); Flatten is a stable pre-order walk.
type Tree struct {
	organizationID string
	byID           map[int64]*Concept
	children       map[int64][]*Concept
	roots          []*Concept
	levels         map[int64]Level
}

// BuildTree assembles and validates a tree from a flat concept list.
// It returns an IntegrityError for orphans, cycles, or nodes deeper than
// the subcategory level.
func BuildTree(organizationID string, concepts []*Concept) (*Tree, error) {
	t := &Tree{
		organizationID: organizationID,
		byID:           make(map[int64]*Concept, len(concepts)),
		children:       make(map[int64][]*Concept),
		levels:         make(map[int64]Level, len(concepts)),
	}

	for _, c := range concepts {
		if c.OrganizationID != organizationID {
			return nil, domain.NewIntegrityError("concept", fmt.Sprint(c.ID),
				"concept belongs to a different organization")
		}
		if _, dup := t.byID[c.ID]; dup {
			return nil, domain.NewIntegrityError("concept", fmt.Sprint(c.ID), "duplicate concept id")
		}
		t.byID[c.ID] = c
	}

	for _, c := range concepts {
		if c.ParentID == nil {
			t.roots = append(t.roots, c)
			continue
		}
		if _, ok := t.byID[*c.ParentID]; !ok {
			return nil, domain.NewIntegrityError("concept", fmt.Sprint(c.ID),
				fmt.Sprintf("parent %d does not exist", *c.ParentID))
		}
		t.children[*c.ParentID] = append(t.children[*c.ParentID], c)
	}

	// Stable ordering: roots and sibling groups sorted by id
	sort.Slice(t.roots, func(i, j int) bool { return t.roots[i].ID < t.roots[j].ID })
	for _, siblings := range t.children {
		sort.Slice(siblings, func(i, j int) bool { return siblings[i].ID < siblings[j].ID })
	}

	// Assign levels breadth-first. Nodes left without a level are part of a
	// cycle (unreachable from any root).
	queue := make([]*Concept, 0, len(t.roots))
	for _, r := range t.roots {
		t.levels[r.ID] = LevelType
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		level := t.levels[node.ID]
		for _, child := range t.children[node.ID] {
			if level >= LevelSubcategory {
				return nil, domain.NewIntegrityError("concept", fmt.Sprint(child.ID),
					"concept nested below subcategory level")
			}
			t.levels[child.ID] = level + 1
			queue = append(queue, child)
		}
	}
	if len(t.levels) != len(t.byID) {
		return nil, domain.NewIntegrityError("concept_tree", organizationID,
			"tree contains a cycle or unreachable node")
	}

	return t, nil
}

// OrganizationID returns the organization the snapshot belongs to.
func (t *Tree) OrganizationID() string {
	return t.organizationID
}

// Get returns the concept with the given id, or nil when it is not part of
// this organization's tree.
func (t *Tree) Get(id int64) *Concept {
	return t.byID[id]
}

// ChildrenOf returns the direct children of a concept, ordered by id.
func (t *Tree) ChildrenOf(id int64) []*Concept {
	return t.children[id]
}

// Roots returns the type-level concepts, ordered by id.
func (t *Tree) Roots() []*Concept {
	return t.roots
}

// LevelOf returns the depth of a concept in the tree.
func (t *Tree) LevelOf(id int64) (Level, bool) {
	l, ok := t.levels[id]
	return l, ok
}

// Len returns the number of concepts in the snapshot.
func (t *Tree) Len() int {
	return len(t.byID)
}

// Flatten returns every node in stable pre-order: each root followed by its
// descendants, siblings ordered by id. Every node appears exactly once.
func (t *Tree) Flatten() []*Concept {
	out := make([]*Concept, 0, len(t.byID))
	var walk func(*Concept)
	walk = func(c *Concept) {
		out = append(out, c)
		for _, child := range t.children[c.ID] {
			walk(child)
		}
	}
	for _, r := range t.roots {
		walk(r)
	}
	return out
}
