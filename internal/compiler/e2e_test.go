package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/config"
	"urd/internal/diag"
	"urd/internal/diff"
)

// decodeWorld unmarshals a compiled World document into a generic map so
// assertions can navigate specific keys without pinning the whole shape —
// EMIT's exact key set is covered package-locally in internal/emit; these
// tests only need to confirm the pipeline produces the right facts end to
// end.
func decodeWorld(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func dig(t *testing.T, m map[string]any, path ...string) any {
	t.Helper()
	var cur any = m
	for _, p := range path {
		asMap, ok := cur.(map[string]any)
		require.True(t, ok, "expected a map while digging for %v at %q, got %T", path, p, cur)
		cur, ok = asMap[p]
		require.True(t, ok, "missing key %q while digging for %v", p, path)
	}
	return cur
}

// TestEndToEndTwoRoomKeyPuzzle covers scenario (a): a locked exit guarded by
// a boolean entity property, unlocked and consumed by a choice's effects.
func TestEndToEndTwoRoomKeyPuzzle(t *testing.T) {
	reader := newFakeReader()
	reader.files["cell.urd.md"] = "" +
		"---\n" +
		"world:\n" +
		"  name: Key Puzzle\n" +
		"  start: cell\n" +
		"types:\n" +
		"  Door:\n" +
		"    locked: bool = true\n" +
		"  Item:\n" +
		"    ~hidden: bool = false\n" +
		"entities:\n" +
		"  @cell_door: Door\n" +
		"  @rusty_key: Item\n" +
		"---\n" +
		"# Cell\n" +
		"-> north: Corridor\n" +
		"  ? @cell_door.locked == false\n" +
		"  ! The iron door is locked.\n" +
		"* Use the key -> @cell_door\n" +
		"  > @cell_door.locked = false\n" +
		"  > destroy @rusty_key\n" +
		"# Corridor\n"

	result, err := Compile("cell.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.Empty(t, result.Diagnostics, "expected a clean compile, got %+v", result.Diagnostics)
	require.True(t, result.Success)

	world := decodeWorld(t, result.World)
	require.Equal(t, "key-puzzle", dig(t, world, "world", "name"))
	require.Equal(t, "cell", dig(t, world, "world", "start"))

	exit := dig(t, world, "locations", "cell", "exits", "north").(map[string]any)
	require.Equal(t, "corridor", exit["to"])
	require.Equal(t, "cell_door.locked == false", exit["condition"])
	require.Equal(t, "The iron door is locked.", exit["blocked_message"])

	actions := dig(t, world, "actions").(map[string]any)
	require.Len(t, actions, 1)
	var action map[string]any
	for _, v := range actions {
		action = v.(map[string]any)
	}
	require.Equal(t, "cell_door", action["target"])
	effects := action["effects"].([]any)
	require.Len(t, effects, 2)

	setEff := effects[0].(map[string]any)
	require.Equal(t, "cell_door.locked", setEff["set"])
	require.Equal(t, false, setEff["to"])

	destroyEff := effects[1].(map[string]any)
	require.Equal(t, "rusty_key", destroyEff["destroy"])
}

// TestEndToEndTavernScene covers scenario (b): world name slugification, an
// arithmetic property effect, and a sticky choice.
func TestEndToEndTavernScene(t *testing.T) {
	reader := newFakeReader()
	reader.files["tavern.urd.md"] = "" +
		"---\n" +
		"world:\n" +
		"  name: The Rusty Anchor\n" +
		"  start: taproom\n" +
		"types:\n" +
		"  Npc:\n" +
		"    trust: int(0, 10) = 5\n" +
		"entities:\n" +
		"  @arina: Npc\n" +
		"---\n" +
		"# Taproom\n" +
		"@arina: What'll it be?\n" +
		"* Ask about the ship -> talk\n" +
		"  > @arina.trust + 1\n" +
		"+ Order a drink -> @arina\n"

	result, err := Compile("tavern.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.Empty(t, result.Diagnostics, "expected a clean compile, got %+v", result.Diagnostics)
	require.True(t, result.Success)

	world := decodeWorld(t, result.World)
	require.Equal(t, "the-rusty-anchor", dig(t, world, "world", "name"))

	actions := dig(t, world, "actions").(map[string]any)
	require.Len(t, actions, 2)

	var askAction, orderAction map[string]any
	for _, v := range actions {
		a := v.(map[string]any)
		effs, _ := a["effects"].([]any)
		if len(effs) > 0 {
			askAction = a
		} else {
			orderAction = a
		}
	}
	require.NotNil(t, askAction)
	require.NotNil(t, orderAction)

	effect := askAction["effects"].([]any)[0].(map[string]any)
	require.Equal(t, "arina.trust", effect["set"])
	require.Equal(t, "arina.trust + 1", effect["to"])

	require.Equal(t, "arina", orderAction["target"])
}

// TestEndToEndInterrogationWithImports covers scenario (c): a multi-file
// import bringing in shared types, an "any:" OR-condition block, and a
// nested choice whose jump resolves to a same-file section as "goto".
func TestEndToEndInterrogationWithImports(t *testing.T) {
	reader := newFakeReader()
	reader.files["interrogation.urd.md"] = "" +
		"---\n" +
		"world:\n" +
		"  name: Interrogation\n" +
		"  start: room\n" +
		"import: ./evidence.urd.md\n" +
		"entities:\n" +
		"  @suspect: Person\n" +
		"  @knife: Evidence\n" +
		"---\n" +
		"# Room\n" +
		"== approach\n" +
		"? any:\n" +
		"  @suspect.mood == calm\n" +
		"  @suspect.mood == wary\n" +
		"* Show evidence -> talk\n" +
		"  @suspect: That's not mine.\n" +
		"  * Push further\n" +
		"    -> confession\n" +
		"== confession\n" +
		"@suspect: Fine, it was me.\n"
	reader.files["evidence.urd.md"] = "" +
		"---\n" +
		"types:\n" +
		"  Person:\n" +
		"    mood: enum(calm, wary, hostile) = calm\n" +
		"  Evidence:\n" +
		"    ~hidden: bool = false\n" +
		"---\n"

	result, err := Compile("interrogation.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.Empty(t, result.Diagnostics, "expected a clean compile, got %+v", result.Diagnostics)
	require.True(t, result.Success)

	world := decodeWorld(t, result.World)
	dialogue := dig(t, world, "dialogue").(map[string]any)

	approach := dialogue["interrogation/approach"].(map[string]any)
	conditions := approach["conditions"].(map[string]any)
	anyList := conditions["any"].([]any)
	require.Len(t, anyList, 2)
	require.Contains(t, anyList, "suspect.mood == calm")
	require.Contains(t, anyList, "suspect.mood == wary")

	choices := approach["choices"].([]any)
	require.Len(t, choices, 1)
	showEvidence := choices[0].(map[string]any)
	require.Equal(t, "Show evidence", showEvidence["label"])

	nested := showEvidence["choices"].([]any)
	require.Len(t, nested, 1)
	pushFurther := nested[0].(map[string]any)
	require.Equal(t, "Push further", pushFurther["label"])
	require.Equal(t, "interrogation/confession", pushFurther["goto"])

	require.Contains(t, dialogue, "interrogation/confession")
}

// TestEndToEndMontyHallVariant covers scenario (d): a rule block keyed off
// an actor that needs no entity declaration, a type-targeted choice, and a
// hidden enum property.
func TestEndToEndMontyHallVariant(t *testing.T) {
	reader := newFakeReader()
	reader.files["game.urd.md"] = "" +
		"---\n" +
		"world:\n" +
		"  name: Monty Hall\n" +
		"  start: stage\n" +
		"types:\n" +
		"  Door:\n" +
		"    ~prize: enum(car, goat) = goat\n" +
		"entities:\n" +
		"  @door_a: Door\n" +
		"  @door_b: Door\n" +
		"  @door_c: Door\n" +
		"---\n" +
		"# Stage\n" +
		"* Pick a door -> any Door\n" +
		"rule monty_reveals:\n" +
		"  actor: @host action reveal\n" +
		"  > reveal @door_b.prize\n"

	result, err := Compile("game.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.Empty(t, result.Diagnostics, "expected a clean compile, got %+v", result.Diagnostics)
	require.True(t, result.Success)

	world := decodeWorld(t, result.World)

	doorType := dig(t, world, "types", "Door", "properties", "prize").(map[string]any)
	require.Equal(t, "hidden", doorType["visibility"])

	actions := dig(t, world, "actions").(map[string]any)
	var pickAction map[string]any
	for _, v := range actions {
		pickAction = v.(map[string]any)
	}
	require.Equal(t, "Door", pickAction["target_type"])

	rules := dig(t, world, "rules").(map[string]any)
	rule := rules["monty_reveals"].(map[string]any)
	require.Equal(t, "host", rule["actor"])
	require.Equal(t, "action reveal", rule["trigger"])
}

// TestEndToEndMissingEntityReference covers scenario (e): a typo'd entity
// reference produces URD301 with a "Did you mean" suggestion and no world
// is emitted.
func TestEndToEndMissingEntityReference(t *testing.T) {
	reader := newFakeReader()
	reader.files["ghost.urd.md"] = "" +
		"---\n" +
		"world:\n" +
		"  name: Haunting\n" +
		"  start: attic\n" +
		"types:\n" +
		"  Ghost:\n" +
		"    mood: enum(calm, angry) = calm\n" +
		"entities:\n" +
		"  @unknown: Ghost\n" +
		"---\n" +
		"# Attic\n" +
		"@unkown: Who's there?\n"

	result, err := Compile("ghost.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Empty(t, result.World)

	var found bool
	for _, d := range result.Diagnostics {
		if d.Code == "URD301" {
			found = true
			require.Contains(t, d.Suggestion, "Did you mean '@unknown'?")
		}
	}
	require.True(t, found, "expected a URD301 diagnostic, got %+v", result.Diagnostics)
}

// TestEndToEndChoiceNestingTooDeep covers scenario (f): four levels of
// nested choices trip the choice-depth limit as an error, so no world is
// emitted even though every reference resolves cleanly.
func TestEndToEndChoiceNestingTooDeep(t *testing.T) {
	reader := newFakeReader()
	reader.files["deep.urd.md"] = "" +
		"---\n" +
		"world:\n" +
		"  name: Too Deep\n" +
		"  start: room\n" +
		"---\n" +
		"# Room\n" +
		"* One -> talk\n" +
		"  * Two\n" +
		"    * Three\n" +
		"      * Four\n" +
		"        -> end\n"

	result, err := Compile("deep.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Empty(t, result.World)

	var found bool
	for _, d := range result.Diagnostics {
		if d.Code == "URD410" {
			found = true
		}
	}
	require.True(t, found, "expected a URD410 diagnostic, got %+v", result.Diagnostics)
}

// TestEndToEndDiffDetectsGuardPropertySwap covers scenario (g): two
// compilations of the same structure differing only in which property an
// exit's guard reads must surface as exactly one condition_changed entry.
func TestEndToEndDiffDetectsGuardPropertySwap(t *testing.T) {
	source := func(propName string) string {
		return "" +
			"---\n" +
			"world:\n" +
			"  name: Key Puzzle\n" +
			"  start: cell\n" +
			"types:\n" +
			"  Door:\n" +
			"    " + propName + ": bool = true\n" +
			"entities:\n" +
			"  @cell_door: Door\n" +
			"---\n" +
			"# Cell\n" +
			"-> north: Corridor\n" +
			"  ? @cell_door." + propName + " == false\n" +
			"# Corridor\n"
	}

	readerA := newFakeReader()
	readerA.files["cell.urd.md"] = source("locked")
	resultA, err := Compile("cell.urd.md", readerA, config.Default())
	require.NoError(t, err)
	require.True(t, resultA.Success)

	readerB := newFakeReader()
	readerB.files["cell.urd.md"] = source("jammed")
	resultB, err := Compile("cell.urd.md", readerB, config.Default())
	require.NoError(t, err)
	require.True(t, resultB.Success)

	snapA := diff.BuildSnapshot("Key Puzzle", resultA.Graph, resultA.Order, resultA.Symbols, resultA.Facts, resultA.PropertyIndex, diag.NewCollector())
	snapB := diff.BuildSnapshot("Key Puzzle", resultB.Graph, resultB.Order, resultB.Symbols, resultB.Facts, resultB.PropertyIndex, diag.NewCollector())

	report := diff.Diff(snapA, snapB)

	var conditionChanges int
	for _, c := range report.Changes {
		if c.Category == "exit" && c.Kind == "condition_changed" {
			conditionChanges++
			require.Equal(t, "cell/north", c.ID)
		}
	}
	require.Equal(t, 1, conditionChanges, "expected exactly one condition_changed entry, got %+v", report.Changes)
}
