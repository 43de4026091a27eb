package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BossSpawn places one boss in the world. Key is the stable identity its
// attributes are persisted under.
type BossSpawn struct {
	Key   string  `yaml:"key"`
	Boss  string  `yaml:"boss"`
	MapID int32   `yaml:"map_id"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
}

type bossSpawnFile struct {
	Spawns []BossSpawn `yaml:"spawns"`
}

// LoadBossSpawnList loads boss placements from a YAML file.
func LoadBossSpawnList(path string) ([]BossSpawn, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boss_spawn_list: %w", err)
	}
	var f bossSpawnFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse boss_spawn_list: %w", err)
	}
	for i := range f.Spawns {
		if f.Spawns[i].Key == "" {
			f.Spawns[i].Key = fmt.Sprintf("%s@%d", f.Spawns[i].Boss, i)
		}
	}
	return f.Spawns, nil
}
