package anvil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var ErrWorldNotFound = errors.New("anvil: world not found")

// Server is the directory a game server runs in. Every world it hosts is a subdirectory, and the directory may
// itself be a world.
type Server struct {
	Dir string
	Log *slog.Logger
}

// NewServer returns a Server rooted at dir. The directory is made absolute so a world served from its own directory
// is named after it even when dir is ".". A nil log uses slog.Default().
func NewServer(dir string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Server{Dir: dir, Log: log}
}

// WorldNames lists the worlds of the server in directory order.
func (s *Server) WorldNames() ([]string, error) {
	if isWorldDir(s.Dir) {
		return []string{filepath.Base(s.Dir)}, nil
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && isWorldDir(filepath.Join(s.Dir, e.Name())) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Worlds opens every world of the server. The files are read again on every call.
func (s *Server) Worlds() ([]*World, error) {
	names, err := s.WorldNames()
	if err != nil {
		return nil, err
	}
	worlds := make([]*World, 0, len(names))
	for _, name := range names {
		w, err := s.World(name)
		if err != nil {
			return nil, fmt.Errorf("open world %s: %w", name, err)
		}
		worlds = append(worlds, w)
	}
	return worlds, nil
}

// World opens the world with the name passed. ErrWorldNotFound is returned if the server has no such world.
func (s *Server) World(name string) (*World, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, ErrWorldNotFound
	}
	dir := filepath.Join(s.Dir, name)
	if isWorldDir(s.Dir) {
		if filepath.Base(s.Dir) != name {
			return nil, ErrWorldNotFound
		}
		dir = s.Dir
	}
	if !isWorldDir(dir) {
		return nil, ErrWorldNotFound
	}
	return OpenWorld(dir, s.Log)
}

type operator struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// IsOperator reports whether the player is listed in the server's ops.json. A missing file means there are no
// operators.
func (s *Server) IsOperator(player string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, "ops.json"))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var ops []operator
	if err := json.Unmarshal(data, &ops); err != nil {
		return false, fmt.Errorf("ops.json: %w", err)
	}
	for _, op := range ops {
		if strings.EqualFold(op.Name, player) && op.Level > 0 {
			return true, nil
		}
	}
	return false, nil
}

func isWorldDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "level.dat")); err == nil {
		return true
	}
	_, ok := findDimension(dir)
	return ok
}
