package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMaps(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	list := filepath.Join(dir, "map_list.yaml")
	require.NoError(t, os.WriteFile(list, []byte(`
maps:
  - {map_id: 1, name: crypt, start_x: 10, end_x: 13, start_y: 20, end_y: 22}
  - {map_id: 2, name: forge, start_x: 0, end_x: 9, start_y: 0, end_y: 9}
`), 0o644))
	tiles := filepath.Join(dir, "map")
	require.NoError(t, os.Mkdir(tiles, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tiles, "1.txt"), []byte(
		"# y=20..22\n"+
			"0,3,3,3\n"+
			"3,19,3,3\n"+
			"3,3,1,2\n"), 0o644))
	return list, tiles
}

func TestLoadMapData(t *testing.T) {
	list, tiles := writeMaps(t)
	m, err := LoadMapData(list, tiles)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Count())
	assert.Equal(t, []int32{2}, m.Missing())
	require.NotNil(t, m.GetInfo(1))
	assert.Equal(t, "crypt", m.GetInfo(1).Name)
	assert.Nil(t, m.GetInfo(2))

	assert.True(t, m.IsInMap(1, 13, 22))
	assert.False(t, m.IsInMap(1, 14, 22))
}

func TestMapData_Groundable(t *testing.T) {
	list, tiles := writeMaps(t)
	m, err := LoadMapData(list, tiles)
	require.NoError(t, err)

	assert.False(t, m.Groundable(1, 10, 20), "wall")
	assert.True(t, m.IsSafetyZone(1, 11, 21))
	assert.False(t, m.Groundable(1, 11, 21), "safety zone")
	assert.True(t, m.Groundable(1, 12, 22), "east-passable floor")
	assert.True(t, m.Groundable(1, 13, 22), "north-passable floor")
	assert.False(t, m.Groundable(1, 30, 30), "out of bounds")

	type tile struct{ m, x, y int32 }
	var blocked []tile
	n := m.EachBlocked(func(mapID, x, y int32) { blocked = append(blocked, tile{mapID, x, y}) })
	assert.Equal(t, 2, n)
	assert.Equal(t, []tile{{1, 10, 20}, {1, 11, 21}}, blocked)
}

func TestLoadMapData_MissingList(t *testing.T) {
	_, err := LoadMapData(filepath.Join(t.TempDir(), "nope.yaml"), "map")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read map list")
}
