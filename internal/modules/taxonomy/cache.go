package taxonomy

import (
	"sync"

	"github.com/rs/zerolog"
)

// Cache keeps one immutable Tree snapshot per organization. The tree is
// read-only from the engine's perspective; admin edits land on the next
// refresh (cron-driven) or on Invalidate.
type Cache struct {
	repo *Repository
	log  zerolog.Logger

	mu    sync.RWMutex
	trees map[string]*Tree
}

// NewCache creates a new taxonomy cache backed by the repository.
func NewCache(repo *Repository, log zerolog.Logger) *Cache {
	return &Cache{
		repo:  repo,
		log:   log.With().Str("component", "taxonomy_cache").Logger(),
		trees: make(map[string]*Tree),
	}
}

// Tree returns the cached snapshot for an organization, loading it on a
// cache miss.
func (c *Cache) Tree(organizationID string) (*Tree, error) {
	c.mu.RLock()
	tree, ok := c.trees[organizationID]
	c.mu.RUnlock()
	if ok {
		return tree, nil
	}
	return c.Refresh(organizationID)
}

// Refresh reloads one organization's tree from the store and swaps the
// snapshot. A load failure leaves the previous snapshot in place.
func (c *Cache) Refresh(organizationID string) (*Tree, error) {
	tree, err := c.repo.LoadTree(organizationID)
	if err != nil {
		c.log.Error().Err(err).Str("organization_id", organizationID).Msg("Taxonomy refresh failed")
		return nil, err
	}

	c.mu.Lock()
	c.trees[organizationID] = tree
	c.mu.Unlock()
	return tree, nil
}

// RefreshAll reloads every organization currently cached. Returns the number
// of organizations refreshed.
func (c *Cache) RefreshAll() int {
	c.mu.RLock()
	orgs := make([]string, 0, len(c.trees))
	for org := range c.trees {
		orgs = append(orgs, org)
	}
	c.mu.RUnlock()

	refreshed := 0
	for _, org := range orgs {
		if _, err := c.Refresh(org); err == nil {
			refreshed++
		}
	}
	return refreshed
}

// Invalidate drops one organization's snapshot.
func (c *Cache) Invalidate(organizationID string) {
	c.mu.Lock()
	delete(c.trees, organizationID)
	c.mu.Unlock()
}
