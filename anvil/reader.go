package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/willf/bitset"
)

const anvilMaxOffsets = 1024
const anvilSectorSize = 4096

// RegionWidth is the number of chunks along one side of a region file.
const RegionWidth = 32

var ErrNoChunk = errors.New("anvil: chunk not found")
var ErrInvalidChunkLength = errors.New("anvil: invalid chunk length")
var ErrInvalidCompression = errors.New("anvil: invalid compression format")

type CompressionType byte

const (
	CompressionGzip CompressionType = 1
	CompressionZlib CompressionType = 2
	CompressionNone CompressionType = 3

	// compressionExternal is OR'ed into the compression byte when the payload
	// did not fit the region file and was written to a c.<x>.<z>.mcc file.
	compressionExternal CompressionType = 0x80
)

// Reader allows you to read an Anvil region file and extract its chunks. The reader is not safe for concurrent
// access; usage should be protected by a mutex if concurrent access is desired.
type Reader struct {
	source      io.ReadSeeker
	sectorTable []int32
	present     *bitset.BitSet

	// Name is the path of the region file, if the source was a file.
	Name string
	// X and Z are the region coordinates, known when Name follows the r.<x>.<z>.mca convention.
	X, Z int
}

// NewReader creates a Reader. The ownership of the source is transferred to this reader.
func NewReader(source io.ReadSeeker) (reader *Reader, err error) {
	reader = &Reader{
		source:      source,
		sectorTable: make([]int32, anvilMaxOffsets),
		present:     bitset.New(anvilMaxOffsets),
	}

	if file, ok := source.(*os.File); ok {
		reader.Name = file.Name()
		if x, z, perr := ParseRegionFileName(filepath.Base(file.Name())); perr == nil {
			reader.X, reader.Z = x, z
		}
	}
	err = reader.readSectorTable()
	return
}

// OpenReader opens the region file at path.
func OpenReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return reader, nil
}

func (r *Reader) readSectorTable() (err error) {
	_, err = r.source.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}

	rawSectorData := make([]byte, anvilSectorSize)
	_, err = io.ReadFull(r.source, rawSectorData)
	if err != nil {
		return err
	}

	rawSectorIn := bytes.NewReader(rawSectorData)
	if err = binary.Read(rawSectorIn, binary.BigEndian, r.sectorTable); err != nil {
		return err
	}
	for i, location := range r.sectorTable {
		if location>>8 != 0 {
			r.present.Set(uint(i))
		}
	}
	return nil
}

// ReadChunk reads an Anvil chunk at the specified X and Z coordinates. Note that these coordinates are relative to the
// region file and are not chunk coordinates. If successful, the provided reader may be provided to an NBT deserialization
// routine.
func (r *Reader) ReadChunk(x, z int) (chunk io.Reader, err error) {
	if x < 0 || x >= RegionWidth || z < 0 || z >= RegionWidth {
		return nil, fmt.Errorf("anvil: slot %d,%d out of range", x, z)
	}
	location := r.sectorTable[x+z*RegionWidth]

	sectorNumber := location >> 8
	occupiedSectors := location & 0xff
	if sectorNumber == 0 {
		err = ErrNoChunk
		return
	}

	if _, err = r.source.Seek(int64(sectorNumber)*anvilSectorSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek: %w", err)
	}

	sectorData := make([]byte, int(occupiedSectors)*anvilSectorSize)
	if _, err = io.ReadFull(r.source, sectorData); err != nil {
		return nil, fmt.Errorf("could not read sectors: %w", err)
	}

	sectorReader := bytes.NewReader(sectorData)
	var sectorHeader struct {
		Length      int32
		Compression CompressionType
	}
	if err = binary.Read(sectorReader, binary.BigEndian, &sectorHeader); err != nil {
		return
	}

	// Length counts the compression byte as well.
	if sectorHeader.Length < 1 || sectorHeader.Length-1 > int32(len(sectorData)-5) {
		return nil, ErrInvalidChunkLength
	}

	var chunkStream io.Reader = io.LimitReader(sectorReader, int64(sectorHeader.Length-1))
	compression := sectorHeader.Compression
	if compression&compressionExternal != 0 {
		compression &^= compressionExternal
		external, err := r.readExternal(x, z)
		if err != nil {
			return nil, err
		}
		chunkStream = external
	}
	return decompress(chunkStream, compression)
}

// readExternal loads the oversized payload stored beside the region file.
func (r *Reader) readExternal(x, z int) (io.Reader, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("anvil: external chunk %d,%d without a region file name", x, z)
	}
	cx, cz := r.X*RegionWidth+x, r.Z*RegionWidth+z
	path := filepath.Join(filepath.Dir(r.Name), fmt.Sprintf("c.%d.%d.mcc", cx, cz))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read external chunk: %w", err)
	}
	return bytes.NewReader(data), nil
}

func decompress(stream io.Reader, compression CompressionType) (io.Reader, error) {
	switch compression {
	case CompressionGzip:
		return gzip.NewReader(stream)
	case CompressionZlib:
		return zlib.NewReader(stream)
	case CompressionNone:
		return stream, nil
	default:
		return nil, ErrInvalidCompression
	}
}

// ChunkExists reports whether the region-relative slot holds a chunk.
func (r *Reader) ChunkExists(x, z int) bool {
	if x < 0 || x >= RegionWidth || z < 0 || z >= RegionWidth {
		return false
	}
	return r.present.Test(uint(x + z*RegionWidth))
}

// ChunkCount returns the number of populated slots.
func (r *Reader) ChunkCount() int {
	return int(r.present.Count())
}

// Slots calls f for every populated slot, in file order.
func (r *Reader) Slots(f func(x, z int)) {
	for i, ok := r.present.NextSet(0); ok; i, ok = r.present.NextSet(i + 1) {
		f(int(i)%RegionWidth, int(i)/RegionWidth)
	}
}

func (r *Reader) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
