package catalog

import (
	"sort"
	"strings"

	"github.com/voyagen/tvonline/internal/models"
)

// Dedupe returns chs without repeated (name, url) pairs; the first occurrence wins.
// Callers merging several sources use it before AddChannels.
func Dedupe(chs []models.Channel) []models.Channel {
	seen := make(map[models.Key]struct{}, len(chs))
	out := make([]models.Channel, 0, len(chs))
	for _, ch := range chs {
		k := ch.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ch)
	}
	return out
}

// SortForDisplay returns a copy of chs with favorites first, then by name ignoring case.
func SortForDisplay(chs []models.Channel) []models.Channel {
	out := cloneChannels(chs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsFavorite != out[j].IsFavorite {
			return out[i].IsFavorite
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Sorted returns the live collection ordered for display.
func (c *Catalog) Sorted() []models.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return SortForDisplay(c.channels)
}
