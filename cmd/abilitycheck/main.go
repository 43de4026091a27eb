// abilitycheck loads a boss ability table the way the server does and
// reports clamped values, shadowed stages, unknown kinds and spawns that
// name a missing boss.
//
// Usage:
//
//	go run ./cmd/abilitycheck [-abilities path] [-spawns path] [-strict]
//
// Exits 1 when a file cannot be parsed, and with -strict also when anything
// was reported.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/data"
)

func main() {
	abilities := flag.String("abilities", "data/yaml/boss_abilities.yaml", "ability table")
	spawns := flag.String("spawns", "data/yaml/boss_spawn_list.yaml", "boss spawn list, empty to skip")
	strict := flag.Bool("strict", false, "fail on any finding")
	flag.Parse()

	n, err := check(*abilities, *spawns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if n > 0 && *strict {
		os.Exit(1)
	}
}

func check(abilitiesPath, spawnsPath string) (int, error) {
	t, err := data.LoadAbilityTable(abilitiesPath)
	if err != nil {
		return 0, err
	}
	fmt.Printf("%s: %d abilities, %d bosses\n", abilitiesPath, t.Count(), len(t.BossCodes()))

	found := 0
	for _, is := range t.Issues() {
		tag := "clamp"
		if is.Severity == data.SeverityWarn {
			tag = "warn "
		}
		fmt.Printf("  %s  %s\n", tag, is)
		found++
	}
	for _, code := range ability.UnknownKinds(t) {
		fmt.Printf("  kind   %s: %q is not implemented (known: %v)\n", code, t.Get(code).Kind, ability.Kinds())
		found++
	}

	if spawnsPath != "" {
		list, err := data.LoadBossSpawnList(spawnsPath)
		if err != nil {
			return found, err
		}
		for _, sp := range list {
			if t.Boss(sp.Boss) == nil {
				fmt.Printf("  spawn  %s: boss %s not defined\n", sp.Key, sp.Boss)
				found++
			}
		}
		fmt.Printf("%s: %d spawns\n", spawnsPath, len(list))
	}

	if found == 0 {
		fmt.Println("ok")
	} else {
		fmt.Printf("%d finding(s)\n", found)
	}
	return found, nil
}
