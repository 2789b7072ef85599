// Package census counts entities and block entities per world, chunk and type, and ranks the results.
package census

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gorogoro-space/chunkanalyzer/anvil"
)

// Entry is one ranked key with its count.
type Entry[K comparable] struct {
	Key   K
	Count int
}

// Rank orders counts from high to low and keeps at most limit entries. Keys with equal counts are ordered by tie,
// so the result does not depend on map iteration order. A limit of zero or less yields nothing.
func Rank[K comparable](counts map[K]int, limit int, tie func(a, b K) int) []Entry[K] {
	if limit <= 0 || len(counts) == 0 {
		return nil
	}
	entries := make([]Entry[K], 0, len(counts))
	for k, n := range counts {
		entries = append(entries, Entry[K]{Key: k, Count: n})
	}
	slices.SortFunc(entries, func(a, b Entry[K]) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return tie(a.Key, b.Key)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Occupancy is the number of entities plus block entities in the chunk.
func Occupancy(c *anvil.Chunk) int {
	return len(c.Entities) + len(c.BlockEntities)
}

// WorldScores ranks worlds by the summed occupancy of their chunks. Worlds without chunks are left out.
func WorldScores(worlds []*anvil.World, limit int) []Entry[string] {
	counter := make(map[string]int)
	for _, w := range worlds {
		for _, c := range w.Chunks() {
			counter[w.Name] += Occupancy(c)
		}
	}
	return Rank(counter, limit, strings.Compare)
}

// ChunkScores ranks the chunks of a world by occupancy.
func ChunkScores(w *anvil.World, limit int) []Entry[anvil.ChunkPos] {
	counter := make(map[anvil.ChunkPos]int, w.ChunkCount())
	for _, c := range w.Chunks() {
		counter[c.Pos()] = Occupancy(c)
	}
	return Rank(counter, limit, comparePos)
}

// TypeCounts counts the entities and block entities of a chunk by TypeName.
func TypeCounts(c *anvil.Chunk) map[string]int {
	counter := make(map[string]int)
	for _, id := range c.BlockEntities {
		counter[TypeName(id)]++
	}
	for _, id := range c.Entities {
		counter[TypeName(id)]++
	}
	return counter
}

// TopTypes ranks the types found in a chunk.
func TopTypes(c *anvil.Chunk, limit int) []Entry[string] {
	return Rank(TypeCounts(c), limit, strings.Compare)
}

// TypeName turns a stored id into the name shown to players: minecraft:zombie becomes ZOMBIE. Ids of other
// namespaces keep their namespace.
func TypeName(id string) string {
	if id == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(strings.TrimPrefix(id, "minecraft:"))
}

func comparePos(a, b anvil.ChunkPos) int {
	return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Z, b.Z))
}

// Location is a block position players can be teleported to.
type Location struct {
	X, Y, Z float64
	// HasY is false when the surface height of the chunk is unknown.
	HasY bool
}

// TeleportTarget returns the north-west corner of the chunk, on its surface when the height is known.
func TeleportTarget(c *anvil.Chunk) Location {
	return Location{
		X:    float64(c.X << 4),
		Y:    float64(c.SurfaceY),
		Z:    float64(c.Z << 4),
		HasY: c.HasSurface,
	}
}
