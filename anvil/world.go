package anvil

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// dimensionDirs are the places a world keeps its region directory: the overworld at the root, and the nether and
// the end in DIM-1 and DIM1 when the server stores each dimension as its own world.
var dimensionDirs = []string{".", "DIM-1", "DIM1"}

// World is a world read from disk. The chunk set is a snapshot taken when the world was opened.
type World struct {
	Name string
	Dir  string

	chunks map[ChunkPos]*Chunk
}

// chunkDecoder decodes the chunk stored in slot x, z of a region file whose chunks start at chunk coordinates cx, cz.
type chunkDecoder func(r io.Reader, cx, cz int) (*Chunk, error)

// OpenWorld reads every region file of the world at root. Chunks that cannot be decoded are logged and skipped, so
// a damaged region file never hides the rest of the world.
func OpenWorld(root string, log *slog.Logger) (*World, error) {
	if log == nil {
		log = slog.Default()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("anvil: %s is not a directory", root)
	}

	world := &World{Name: filepath.Base(root), Dir: root, chunks: make(map[ChunkPos]*Chunk)}
	dimension, ok := findDimension(root)
	if !ok {
		log.Debug("world has no region data", "world", world.Name)
		return world, nil
	}

	terrain, err := loadRegions(filepath.Join(dimension, "region"), decodeChunk, log)
	if err != nil {
		return nil, err
	}
	world.chunks = terrain

	entities, err := loadRegions(filepath.Join(dimension, "entities"), decodeEntityChunk, log)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for pos, c := range entities {
		if existing, ok := world.chunks[pos]; ok {
			existing.Entities = append(existing.Entities, c.Entities...)
			continue
		}
		world.chunks[pos] = c
	}

	log.Debug("opened world", "world", world.Name, "chunks", len(world.chunks))
	return world, nil
}

func decodeEntityChunk(r io.Reader, cx, cz int) (*Chunk, error) {
	ids, err := decodeEntities(r)
	if err != nil {
		return nil, err
	}
	return &Chunk{X: cx, Z: cz, Entities: ids}, nil
}

func findDimension(root string) (string, bool) {
	for _, d := range dimensionDirs {
		dir := filepath.Join(root, d)
		if info, err := os.Stat(filepath.Join(dir, "region")); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// loadRegions decodes every chunk of every region file in dir. Region files are read in parallel.
func loadRegions(dir string, decode chunkDecoder, log *slog.Logger) (map[ChunkPos]*Chunk, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, possibleRegionFile := range files {
		if possibleRegionFile.IsDir() || !strings.HasSuffix(possibleRegionFile.Name(), ".mca") {
			continue
		}
		if _, _, err := ParseRegionFileName(possibleRegionFile.Name()); err != nil {
			log.Warn("skipping unrecognised region file", "file", possibleRegionFile.Name())
			continue
		}
		paths = append(paths, filepath.Join(dir, possibleRegionFile.Name()))
	}

	var wg sync.WaitGroup
	wg.Add(len(paths))
	limit := make(chan struct{}, runtime.GOMAXPROCS(0))
	resultChan := make(chan map[ChunkPos]*Chunk, len(paths))
	for _, path := range paths {
		go func(path string) {
			defer wg.Done()
			limit <- struct{}{}
			defer func() { <-limit }()

			result, err := readRegion(path, decode, log)
			if err != nil {
				log.Error("unable to read region", "file", path, "err", err)
				return
			}
			resultChan <- result
		}(path)
	}

	wg.Wait()
	close(resultChan)

	allChunks := make(map[ChunkPos]*Chunk)
	for m := range resultChan {
		for k, v := range m {
			allChunks[k] = v
		}
	}
	return allChunks, nil
}

func readRegion(path string, decode chunkDecoder, log *slog.Logger) (map[ChunkPos]*Chunk, error) {
	reader, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	byXZ := make(map[ChunkPos]*Chunk, reader.ChunkCount())
	reader.Slots(func(x, z int) {
		cx, cz := reader.X*RegionWidth+x, reader.Z*RegionWidth+z
		chunkReader, err := reader.ReadChunk(x, z)
		if err != nil {
			log.Warn("could not read chunk", "file", reader.Name, "x", cx, "z", cz, "err", err)
			return
		}
		chunk, err := decode(chunkReader, cx, cz)
		if closer, ok := chunkReader.(io.Closer); ok {
			_ = closer.Close()
		}
		if err != nil {
			log.Warn("could not deserialize chunk", "file", reader.Name, "x", cx, "z", cz, "err", err)
			return
		}
		byXZ[chunk.Pos()] = chunk
	})
	return byXZ, nil
}

// Chunk returns the chunk at pos, if the world stores one.
func (w *World) Chunk(pos ChunkPos) (*Chunk, bool) {
	c, ok := w.chunks[pos]
	return c, ok
}

// Chunks returns all chunks of the world ordered by X, then Z.
func (w *World) Chunks() []*Chunk {
	chunks := make([]*Chunk, 0, len(w.chunks))
	for _, c := range w.chunks {
		chunks = append(chunks, c)
	}
	slices.SortFunc(chunks, func(a, b *Chunk) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Z, b.Z))
	})
	return chunks
}

// ChunkCount returns the number of chunks in the world.
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// NewWorld builds a world from chunks that are already in memory.
func NewWorld(name string, chunks ...*Chunk) *World {
	w := &World{Name: name, chunks: make(map[ChunkPos]*Chunk, len(chunks))}
	for _, c := range chunks {
		w.chunks[c.Pos()] = c
	}
	return w
}
