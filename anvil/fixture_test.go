package anvil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

type fixtureEntity struct {
	ID         string          `nbt:"id"`
	Passengers []fixtureEntity `nbt:"Passengers"`
}

type fixtureLegacyLevel struct {
	XPos         int32           `nbt:"xPos"`
	ZPos         int32           `nbt:"zPos"`
	Entities     []fixtureEntity `nbt:"Entities"`
	TileEntities []fixtureEntity `nbt:"TileEntities"`
	HeightMap    []int32         `nbt:"HeightMap"`
}

type fixtureLegacyChunk struct {
	DataVersion int32              `nbt:"DataVersion"`
	Level       fixtureLegacyLevel `nbt:"Level"`
}

type fixtureHeightmaps struct {
	MotionBlocking []int64 `nbt:"MOTION_BLOCKING"`
}

type fixtureChunk struct {
	DataVersion   int32             `nbt:"DataVersion"`
	XPos          int32             `nbt:"xPos"`
	YPos          int32             `nbt:"yPos"`
	ZPos          int32             `nbt:"zPos"`
	Status        string            `nbt:"Status"`
	BlockEntities []fixtureEntity   `nbt:"block_entities"`
	Heightmaps    fixtureHeightmaps `nbt:"Heightmaps"`
}

type fixtureEntityChunk struct {
	DataVersion int32           `nbt:"DataVersion"`
	Position    []int32         `nbt:"Position"`
	Entities    []fixtureEntity `nbt:"Entities"`
}

// rawChunk is a chunk payload as it is stored in a region file slot.
type rawChunk struct {
	x, z        int
	compression CompressionType
	payload     []byte
}

func entities(ids ...string) []fixtureEntity {
	e := make([]fixtureEntity, 0, len(ids))
	for _, id := range ids {
		e = append(e, fixtureEntity{ID: id})
	}
	return e
}

// encodeChunk serialises v as an NBT compound and compresses it.
func encodeChunk(t *testing.T, v any, compression CompressionType) []byte {
	t.Helper()
	var raw bytes.Buffer
	if err := nbt.NewEncoder(&raw).Encode(v, ""); err != nil {
		t.Fatalf("encode nbt: %v", err)
	}
	return compress(t, raw.Bytes(), compression)
}

func compress(t *testing.T, data []byte, compression CompressionType) []byte {
	t.Helper()
	var out bytes.Buffer
	switch compression &^ compressionExternal {
	case CompressionGzip:
		w := gzip.NewWriter(&out)
		_, _ = w.Write(data)
		if err := w.Close(); err != nil {
			t.Fatalf("gzip: %v", err)
		}
	case CompressionZlib:
		w := zlib.NewWriter(&out)
		_, _ = w.Write(data)
		if err := w.Close(); err != nil {
			t.Fatalf("zlib: %v", err)
		}
	default:
		out.Write(data)
	}
	return out.Bytes()
}

// writeRegionFile lays chunks out the way the game does: an 8 KiB header of locations and timestamps followed by
// sector aligned payloads.
func writeRegionFile(t *testing.T, path string, chunks []rawChunk) {
	t.Helper()
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].x+chunks[i].z*RegionWidth < chunks[j].x+chunks[j].z*RegionWidth
	})

	locations := make([]int32, anvilMaxOffsets)
	var body bytes.Buffer
	sector := 2
	for _, c := range chunks {
		var payload bytes.Buffer
		_ = binary.Write(&payload, binary.BigEndian, int32(len(c.payload)+1))
		payload.WriteByte(byte(c.compression))
		payload.Write(c.payload)
		sectors := (payload.Len() + anvilSectorSize - 1) / anvilSectorSize
		payload.Write(make([]byte, sectors*anvilSectorSize-payload.Len()))

		locations[c.x+c.z*RegionWidth] = int32(sector<<8 | sectors)
		body.Write(payload.Bytes())
		sector += sectors
	}

	var file bytes.Buffer
	_ = binary.Write(&file, binary.BigEndian, locations)
	file.Write(make([]byte, anvilSectorSize))
	file.Write(body.Bytes())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, file.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}
