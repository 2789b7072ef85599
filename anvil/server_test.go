package anvil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "world", "level.dat"))
	writeRegionFile(t, filepath.Join(dir, "world", "region", "r.0.0.mca"), []rawChunk{
		{x: 0, z: 0, compression: CompressionZlib, payload: encodeChunk(t, fixtureChunk{DataVersion: 3465, BlockEntities: entities("minecraft:chest")}, CompressionZlib)},
	})
	writeRegionFile(t, filepath.Join(dir, "world_nether", "DIM-1", "region", "r.0.0.mca"), nil)
	touch(t, filepath.Join(dir, "plugins", "ChunkAnalyzer", "config.yml"))
	touch(t, filepath.Join(dir, "logs", "latest.log"))
	return NewServer(dir, discardLogger())
}

func TestServerWorldNames(t *testing.T) {
	srv := newTestServer(t)
	names, err := srv.WorldNames()
	if err != nil {
		t.Fatalf("world names: %v", err)
	}
	if diff := cmp.Diff([]string{"world", "world_nether"}, names); diff != "" {
		t.Errorf("world names mismatch (-want +got):\n%s", diff)
	}

	worlds, err := srv.Worlds()
	if err != nil {
		t.Fatalf("worlds: %v", err)
	}
	if len(worlds) != 2 || worlds[0].ChunkCount() != 1 || worlds[1].ChunkCount() != 0 {
		t.Fatalf("unexpected worlds: %+v", worlds)
	}
}

func TestServerWorld(t *testing.T) {
	srv := newTestServer(t)
	w, err := srv.World("world")
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if w.Name != "world" || w.ChunkCount() != 1 {
		t.Fatalf("unexpected world %q with %d chunks", w.Name, w.ChunkCount())
	}

	for _, name := range []string{"missing", "plugins", "", "..", "../world", "world/region"} {
		if _, err := srv.World(name); !errors.Is(err, ErrWorldNotFound) {
			t.Errorf("World(%q) err = %v, want ErrWorldNotFound", name, err)
		}
	}
}

func TestServerIsWorld(t *testing.T) {
	srv := newTestServer(t)
	single := NewServer(filepath.Join(srv.Dir, "world"), discardLogger())

	names, err := single.WorldNames()
	if err != nil {
		t.Fatalf("world names: %v", err)
	}
	if diff := cmp.Diff([]string{"world"}, names); diff != "" {
		t.Errorf("world names mismatch (-want +got):\n%s", diff)
	}
	if _, err := single.World("world"); err != nil {
		t.Fatalf("world: %v", err)
	}
	if _, err := single.World("world_nether"); !errors.Is(err, ErrWorldNotFound) {
		t.Fatalf("err = %v, want ErrWorldNotFound", err)
	}
}

func TestServerIsOperator(t *testing.T) {
	srv := newTestServer(t)

	ok, err := srv.IsOperator("kubotan")
	if err != nil || ok {
		t.Fatalf("without ops.json: ok=%v err=%v, want false, nil", ok, err)
	}

	ops := `[
  {"uuid": "0f8fad5b-d9cb-469f-a165-70867728950e", "name": "Kubotan", "level": 4, "bypassesPlayerLimit": false},
  {"uuid": "7c9e6679-7425-40de-944b-e07fc1f90ae7", "name": "demoted", "level": 0, "bypassesPlayerLimit": false}
]`
	if err := os.WriteFile(filepath.Join(srv.Dir, "ops.json"), []byte(ops), 0o644); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]bool{"kubotan": true, "KUBOTAN": true, "demoted": false, "steve": false} {
		got, err := srv.IsOperator(name)
		if err != nil {
			t.Fatalf("IsOperator(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("IsOperator(%q) = %v, want %v", name, got, want)
		}
	}

	if err := os.WriteFile(filepath.Join(srv.Dir, "ops.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := srv.IsOperator("kubotan"); err == nil {
		t.Fatal("malformed ops.json should fail")
	}
}

func TestServerCurrentDirectoryWorld(t *testing.T) {
	srv := newTestServer(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(filepath.Join(srv.Dir, "world")); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})

	single := NewServer(".", discardLogger())
	names, err := single.WorldNames()
	if err != nil {
		t.Fatalf("world names: %v", err)
	}
	if diff := cmp.Diff([]string{"world"}, names); diff != "" {
		t.Errorf("world names mismatch (-want +got):\n%s", diff)
	}

	worlds, err := single.Worlds()
	if err != nil {
		t.Fatalf("worlds: %v", err)
	}
	if len(worlds) != 1 || worlds[0].Name != "world" || worlds[0].ChunkCount() != 1 {
		t.Fatalf("unexpected worlds: %+v", worlds)
	}
	if _, err := single.World("world"); err != nil {
		t.Fatalf("world: %v", err)
	}
}
