package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MapInfo holds the bounds of one arena map, loaded from map_list.yaml.
type MapInfo struct {
	MapID  int32  `yaml:"map_id"`
	Name   string `yaml:"name"`
	StartX int32  `yaml:"start_x"`
	EndX   int32  `yaml:"end_x"`
	StartY int32  `yaml:"start_y"`
	EndY   int32  `yaml:"end_y"`
}

// mapEntry stores loaded tile data + metadata for one map.
type mapEntry struct {
	info   MapInfo
	tiles  []byte // flat array [x * height + y], row-major by X
	width  int32
	height int32
}

// MapDataTable answers which floor tiles can hold ground hazards.
type MapDataTable struct {
	maps    map[int32]*mapEntry
	missing []int32
}

// Tile flags.
const (
	tilePassableEast  byte = 0x01 // bit 0
	tilePassableNorth byte = 0x02 // bit 1
	tileZoneMask      byte = 0x30 // bits 4-5
	tileZoneSafety    byte = 0x10
)

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapData loads map bounds from YAML and tile data from text files.
// yamlPath: path to map_list.yaml
// tileDir: directory containing {mapid}.txt tile files
//
// A map whose tile file is missing is skipped and listed by Missing; every
// tile on it accepts ground hazards.
func LoadMapData(yamlPath, tileDir string) (*MapDataTable, error) {
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	table := &MapDataTable{
		maps: make(map[int32]*mapEntry, len(file.Maps)),
	}

	for _, info := range file.Maps {
		width := info.EndX - info.StartX + 1
		height := info.EndY - info.StartY + 1
		if width <= 0 || height <= 0 {
			continue
		}

		tiles, err := loadTileFile(tileDir, info.MapID, int(width), int(height))
		if os.IsNotExist(err) {
			table.missing = append(table.missing, info.MapID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load tiles for map %d: %w", info.MapID, err)
		}

		table.maps[info.MapID] = &mapEntry{
			info:   info,
			tiles:  tiles,
			width:  width,
			height: height,
		}
	}

	return table, nil
}

// loadTileFile reads a CSV tile file: each line is a row of comma-separated byte values.
// File rows = Y lines, columns = X values.
func loadTileFile(dir string, mapID int32, xSize, ySize int) ([]byte, error) {
	path := filepath.Join(dir, strconv.Itoa(int(mapID))+".txt")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Allocate flat array: tiles[x * ySize + y]
	tiles := make([]byte, xSize*ySize)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	y := 0
	for scanner.Scan() && y < ySize {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		x := 0
		for _, tok := range strings.Split(line, ",") {
			if x >= xSize {
				break
			}
			val, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 16)
			if err != nil {
				val = 0
			}
			tiles[x*ySize+y] = byte(val)
			x++
		}
		y++
	}

	return tiles, scanner.Err()
}

// Count returns the number of maps loaded with tile data.
func (t *MapDataTable) Count() int {
	return len(t.maps)
}

// Missing lists maps named in the map list whose tile file was not found.
func (t *MapDataTable) Missing() []int32 {
	return t.missing
}

// GetInfo returns metadata for a map, or nil if not found.
func (t *MapDataTable) GetInfo(mapID int32) *MapInfo {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return &e.info
}

// accessTile returns the tile byte at world coordinates, or 0 if out of bounds.
func (t *MapDataTable) accessTile(mapID int32, x, y int32) byte {
	e := t.maps[mapID]
	if e == nil {
		return 0
	}
	lx := x - e.info.StartX
	ly := y - e.info.StartY
	if lx < 0 || lx >= e.width || ly < 0 || ly >= e.height {
		return 0
	}
	return e.tiles[int(lx)*int(e.height)+int(ly)]
}

// IsInMap checks if world coordinates are within the map bounds.
func (t *MapDataTable) IsInMap(mapID int32, x, y int32) bool {
	e := t.maps[mapID]
	if e == nil {
		return false
	}
	return e.info.StartX <= x && x <= e.info.EndX &&
		e.info.StartY <= y && y <= e.info.EndY
}

// IsSafetyZone checks if the tile at (x,y) is a safety zone.
func (t *MapDataTable) IsSafetyZone(mapID int32, x, y int32) bool {
	return t.accessTile(mapID, x, y)&tileZoneMask == tileZoneSafety
}

// Groundable reports whether a ground hazard may be placed at (x,y): the
// tile is floor (passable in some direction) and outside safety zones.
func (t *MapDataTable) Groundable(mapID int32, x, y int32) bool {
	tile := t.accessTile(mapID, x, y)
	if tile&tilePassableEast == 0 && tile&tilePassableNorth == 0 {
		return false
	}
	return tile&tileZoneMask != tileZoneSafety
}

// EachBlocked calls fn for every in-bounds tile that cannot hold a ground
// hazard, map by map in ascending map ID order.
func (t *MapDataTable) EachBlocked(fn func(mapID, x, y int32)) int {
	ids := make([]int32, 0, len(t.maps))
	for id := range t.maps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	n := 0
	for _, id := range ids {
		e := t.maps[id]
		for x := e.info.StartX; x <= e.info.EndX; x++ {
			for y := e.info.StartY; y <= e.info.EndY; y++ {
				if !t.Groundable(id, x, y) {
					fn(id, x, y)
					n++
				}
			}
		}
	}
	return n
}
