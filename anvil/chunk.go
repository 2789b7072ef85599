package anvil

import (
	"io"

	"github.com/Tnze/go-mc/nbt"
)

// dataVersionFlattenedChunk is the first data version (21w43a) that stores chunk data at the root of the chunk
// compound instead of inside Level.
const dataVersionFlattenedChunk = 2844

// heightmapBits is the width of one packed heightmap entry.
const heightmapBits = 9

// ChunkPos is the position of a chunk in chunk coordinates.
type ChunkPos struct {
	X int
	Z int
}

// Chunk is the part of a stored chunk the analyzer cares about: which entities and block entities it holds.
type Chunk struct {
	X int
	Z int

	// Entities and BlockEntities hold the namespaced ids as stored, e.g. minecraft:zombie.
	Entities      []string
	BlockEntities []string

	// SurfaceY is the first free block above the chunk's origin column. It is only valid if HasSurface is set.
	SurfaceY   int
	HasSurface bool
}

// Pos returns the position of the chunk.
func (c *Chunk) Pos() ChunkPos {
	return ChunkPos{X: c.X, Z: c.Z}
}

type taggedID struct {
	ID         string     `nbt:"id"`
	Passengers []taggedID `nbt:"Passengers"`
}

type chunkHeightmaps struct {
	MotionBlocking []int64 `nbt:"MOTION_BLOCKING"`
	WorldSurface   []int64 `nbt:"WORLD_SURFACE"`
}

type chunkLevel struct {
	Entities     []taggedID      `nbt:"Entities"`
	TileEntities []taggedID      `nbt:"TileEntities"`
	HeightMap    []int32         `nbt:"HeightMap"`
	Heightmaps   chunkHeightmaps `nbt:"Heightmaps"`
}

type chunkRoot struct {
	DataVersion   int32           `nbt:"DataVersion"`
	YPos          int32           `nbt:"yPos"`
	BlockEntities []taggedID      `nbt:"block_entities"`
	Heightmaps    chunkHeightmaps `nbt:"Heightmaps"`
	Level         chunkLevel      `nbt:"Level"`
}

// entityChunk is the root of a chunk in an entities/ region file.
type entityChunk struct {
	Position []int32    `nbt:"Position"`
	Entities []taggedID `nbt:"Entities"`
}

func decodeChunk(r io.Reader, x, z int) (*Chunk, error) {
	var root chunkRoot
	if _, err := nbt.NewDecoder(r).Decode(&root); err != nil {
		return nil, err
	}

	chunk := &Chunk{X: x, Z: z}
	if root.DataVersion < dataVersionFlattenedChunk {
		chunk.Entities = flattenIDs(nil, root.Level.Entities)
		chunk.BlockEntities = flattenIDs(nil, root.Level.TileEntities)
		if len(root.Level.HeightMap) > 0 {
			chunk.SurfaceY, chunk.HasSurface = int(root.Level.HeightMap[0]), true
		} else {
			chunk.SurfaceY, chunk.HasSurface = root.Level.Heightmaps.origin(0)
		}
		return chunk, nil
	}

	chunk.BlockEntities = flattenIDs(nil, root.BlockEntities)
	chunk.SurfaceY, chunk.HasSurface = root.Heightmaps.origin(int(root.YPos) * 16)
	return chunk, nil
}

func decodeEntities(r io.Reader) ([]string, error) {
	var root entityChunk
	if _, err := nbt.NewDecoder(r).Decode(&root); err != nil {
		return nil, err
	}
	return flattenIDs(nil, root.Entities), nil
}

// origin returns the height of the column at x=0, z=0 of the chunk. That column is always the low bits of the first
// long, whichever packing the data version used.
func (h chunkHeightmaps) origin(minY int) (int, bool) {
	longs := h.MotionBlocking
	if len(longs) == 0 {
		longs = h.WorldSurface
	}
	if len(longs) == 0 {
		return 0, false
	}
	return minY + int(longs[0]&(1<<heightmapBits-1)), true
}

// flattenIDs appends the ids of tags and, recursively, of everything riding them.
func flattenIDs(dst []string, tags []taggedID) []string {
	for _, t := range tags {
		dst = append(dst, t.ID)
		dst = flattenIDs(dst, t.Passengers)
	}
	return dst
}
