package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensubspace/zonecore/internal/asset"
)

// filesystemMapProvider implements asset.MapDataProvider by reading
// an arena's map/LVZ files off disk: AssetDir/<arenaName>/*.lvl and
// *.lvz. The base "all" arena's files live directly under AssetDir.
type filesystemMapProvider struct {
	dir string
}

func (p filesystemMapProvider) arenaDir(arenaName string) string {
	if arenaName == "" || arenaName == "all" {
		return p.dir
	}
	return filepath.Join(p.dir, arenaName)
}

func (p filesystemMapProvider) ListFiles(arenaName string) ([]asset.MapFileRef, error) {
	dir := p.arenaDir(arenaName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var refs []asset.MapFileRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".lvl") {
			refs = append(refs, asset.MapFileRef{Filename: name, Optional: false})
		} else if strings.HasSuffix(lower, ".lvz") {
			refs = append(refs, asset.MapFileRef{Filename: name, Optional: true})
		}
	}
	return refs, nil
}

func (p filesystemMapProvider) ReadFile(arenaName, filename string) ([]byte, error) {
	path := filepath.Join(p.arenaDir(arenaName), filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
