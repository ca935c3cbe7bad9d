package observe

import (
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/dshills/statewatch/keypath"
	"github.com/dshills/statewatch/tree"
)

// buildTree constructs a *tree.Map from nested map literals.
func buildTree(entries map[string]any) *tree.Map {
	m := tree.New()
	for k, v := range entries {
		if nested, ok := v.(map[string]any); ok {
			m = m.Set(k, buildTree(nested))
		} else {
			m = m.Set(k, v)
		}
	}
	return m
}

type record struct {
	event  EventType
	path   string
	newV   any
	oldV   any
	hasNew bool
	hasOld bool
}

func recorder(records *[]record) Callback {
	return func(ch Change) {
		*records = append(*records, record{ch.Event, ch.Path.String(), ch.New, ch.Old, ch.HasNew, ch.HasOld})
	}
}

func mustOn(t *testing.T, c *Cursor, event string, cb Callback) *Registration {
	t.Helper()
	reg, err := c.On(event, cb)
	if err != nil {
		t.Fatalf("On(%q): %v", event, err)
	}
	return reg
}

func TestNotify_NoOpLaw(t *testing.T) {
	root := buildTree(map[string]any{"a": map[string]any{"b": 1}})
	s := New(root)

	var records []record
	mustOn(t, s.Cursor(), "any", recorder(&records))
	mustOn(t, s.Cursor("a"), "any", recorder(&records))
	mustOn(t, s.Cursor("a", "b"), "any", recorder(&records))

	s.Notify(keypath.New("a", "b"), root, root, true)
	s.SetRoot(root)
	s.Cursor("a", "b").Set(1) // identical value, same version

	if len(records) != 0 {
		t.Errorf("identical roots fired %d listeners: %v", len(records), records)
	}
}

// An update at the exact keypath fires exactly once with
// (new, old), and deeper listeners stay silent.
func TestScenario_UpdateAtExactPath(t *testing.T) {
	s := New(buildTree(map[string]any{"a": map[string]any{"b": 1}}))

	var records []record
	mustOn(t, s.Cursor("a", "b"), "update", recorder(&records))

	var deeper []record
	mustOn(t, s.Cursor("a", "b", "c"), "any", recorder(&deeper))

	s.Cursor("a", "b").Set(2)

	if len(records) != 1 {
		t.Fatalf("update listener fired %d times, want 1", len(records))
	}
	got := records[0]
	if got.event != EventUpdate || got.newV != 2 || got.oldV != 1 || !got.hasNew || !got.hasOld {
		t.Errorf("unexpected change: %+v", got)
	}
	if len(deeper) != 0 {
		t.Errorf("listener below the change fired: %v", deeper)
	}
}

// A container-to-scalar transition fires the any listener once
// with the scalar as new and the container as old.
func TestScenario_ContainerToScalar(t *testing.T) {
	inner := buildTree(map[string]any{"b": 1})
	root := tree.New().Set("a", inner)
	s := New(root)

	var records []record
	mustOn(t, s.Cursor("a"), "any", recorder(&records))

	s.Cursor("a").Set(5)

	if len(records) != 1 {
		t.Fatalf("any listener fired %d times, want 1", len(records))
	}
	got := records[0]
	if got.event != EventUpdate || got.newV != 5 {
		t.Errorf("unexpected change: %+v", got)
	}
	if got.oldV != any(inner) {
		t.Errorf("old value = %v, want the original container", got.oldV)
	}
}

// A once-add listener delivers a single event and
// unsubscribes itself; later transitions stay silent.
func TestScenario_OnceAdd(t *testing.T) {
	s := New(tree.New())

	var records []record
	reg, err := s.Cursor("x").Once("add", recorder(&records))
	if err != nil {
		t.Fatal(err)
	}

	s.Cursor("x").Set(1)
	s.Cursor("x").Set(2)

	if len(records) != 1 {
		t.Fatalf("once listener fired %d times, want 1", len(records))
	}
	got := records[0]
	if got.event != EventAdd || got.newV != 1 || got.hasOld {
		t.Errorf("unexpected change: %+v", got)
	}
	if reg.Off() {
		t.Error("registration should already be removed")
	}
	if s.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", s.ListenerCount())
	}
}

func TestPropagationGating(t *testing.T) {
	oldRoot := buildTree(map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}})
	newRoot := tree.SetIn(oldRoot, []string{"a", "b", "c"}, 2)

	s := New(oldRoot)
	var rootRecs, ancestorRecs, exactRecs, childRecs []record
	mustOn(t, s.Cursor(), "any", recorder(&rootRecs))
	mustOn(t, s.Cursor("a"), "any", recorder(&ancestorRecs))
	mustOn(t, s.Cursor("a", "b"), "any", recorder(&exactRecs))
	mustOn(t, s.Cursor("a", "b", "c"), "any", recorder(&childRecs))

	s.Notify(keypath.New("a", "b"), newRoot, oldRoot, false)

	if len(rootRecs) != 0 || len(ancestorRecs) != 0 {
		t.Error("ancestor listeners fired with propagate=false")
	}
	if len(childRecs) != 0 {
		t.Error("descendant listener fired with propagate=false")
	}
	if len(exactRecs) != 1 {
		t.Errorf("exact-path listener fired %d times, want 1", len(exactRecs))
	}
}

func TestAncestorListenersFireOnce(t *testing.T) {
	oldRoot := buildTree(map[string]any{
		"a": map[string]any{"b": 1, "c": 2, "d": 3},
	})
	newRoot := tree.SetIn(oldRoot, []string{"a", "b"}, 10)
	newRoot = tree.SetIn(newRoot, []string{"a", "c"}, 20)

	s := New(oldRoot)
	var rootRecs, aRecs []record
	mustOn(t, s.Cursor(), "any", recorder(&rootRecs))
	mustOn(t, s.Cursor("a"), "any", recorder(&aRecs))

	s.SetRoot(newRoot)

	if len(rootRecs) != 1 {
		t.Errorf("root listener fired %d times, want 1", len(rootRecs))
	}
	if len(aRecs) != 1 {
		t.Errorf("ancestor listener fired %d times, want 1", len(aRecs))
	}
}

func TestAtMostOnce_SpecificBeforeAny(t *testing.T) {
	s := New(buildTree(map[string]any{"a": 1}))

	var order []string
	if _, err := s.Cursor("a").On("update", func(Change) { order = append(order, "update") }); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Cursor("a").On("any", func(Change) { order = append(order, "any") }); err != nil {
		t.Fatal(err)
	}

	s.Cursor("a").Set(2)

	if !reflect.DeepEqual(order, []string{"update", "any"}) {
		t.Errorf("invocation order = %v, want specific bucket before any", order)
	}
}

func TestAncestorChainOrder(t *testing.T) {
	s := New(buildTree(map[string]any{"a": map[string]any{"b": 1}}))

	var order []string
	if _, err := s.Cursor().On("any", func(Change) { order = append(order, "root") }); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Cursor("a").On("any", func(Change) { order = append(order, "a") }); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Cursor("a", "b").On("any", func(Change) { order = append(order, "a.b") }); err != nil {
		t.Fatal(err)
	}

	s.Cursor("a", "b").Set(2)

	if !reflect.DeepEqual(order, []string{"root", "a", "a.b"}) {
		t.Errorf("invocation order = %v, want root-to-leaf", order)
	}
}

func TestDiff_SkipsIdenticalSubtrees(t *testing.T) {
	shared := buildTree(map[string]any{"k": 1})
	oldRoot := tree.New().Set("stable", shared).Set("hot", 1)
	newRoot := oldRoot.Set("hot", 2)

	s := New(oldRoot)
	var stableRecs []record
	mustOn(t, s.Cursor("stable", "k"), "any", recorder(&stableRecs))

	s.SetRoot(newRoot)

	if len(stableRecs) != 0 {
		t.Errorf("listener under an identical subtree fired: %v", stableRecs)
	}
}

func TestDiff_AddAndDeleteFanout(t *testing.T) {
	oldRoot := buildTree(map[string]any{"a": map[string]any{"gone": 1, "kept": 2}})
	newRoot := tree.DeleteIn(oldRoot, []string{"a", "gone"})
	newRoot = tree.SetIn(newRoot, []string{"a", "fresh"}, 3)

	s := New(oldRoot)
	var records []record
	mustOn(t, s.Cursor("a", "gone"), "delete", recorder(&records))
	mustOn(t, s.Cursor("a", "fresh"), "add", recorder(&records))
	mustOn(t, s.Cursor("a", "kept"), "any", recorder(&records))

	s.SetRoot(newRoot)

	if len(records) != 2 {
		t.Fatalf("fired %d listeners, want 2: %v", len(records), records)
	}
	for _, r := range records {
		switch r.path {
		case "a.gone":
			if r.event != EventDelete || r.hasNew || r.oldV != 1 {
				t.Errorf("unexpected delete record: %+v", r)
			}
		case "a.fresh":
			if r.event != EventAdd || r.hasOld || r.newV != 3 {
				t.Errorf("unexpected add record: %+v", r)
			}
		default:
			t.Errorf("unexpected listener fired: %+v", r)
		}
	}
}

func TestDiff_ScalarToContainer(t *testing.T) {
	oldRoot := tree.New().Set("a", 5)
	newRoot := tree.New().Set("a", buildTree(map[string]any{"b": 1}))

	s := New(oldRoot)
	var records []record
	mustOn(t, s.Cursor("a", "b"), "add", recorder(&records))

	s.SetRoot(newRoot)

	if len(records) != 1 {
		t.Fatalf("fired %d listeners, want 1", len(records))
	}
	if records[0].newV != 1 || records[0].hasOld {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

// subSpec names a subscription for the strategy equivalence fixtures.
type subSpec struct {
	path  string
	event string
}

func runWithStrategy(t *testing.T, strategy Strategy, subs []subSpec, kp keypath.Keypath, oldRoot, newRoot *tree.Map) []record {
	t.Helper()
	s := New(oldRoot, WithStrategy(strategy))
	var records []record
	for _, sub := range subs {
		mustOn(t, s.Cursor(keypath.Parse(sub.path)...), sub.event, recorder(&records))
	}
	s.Notify(kp, newRoot, oldRoot, true)

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		ka := fmt.Sprint(a.path, a.event, a.newV, a.oldV)
		kb := fmt.Sprint(b.path, b.event, b.newV, b.oldV)
		return ka < kb
	})
	return records
}

// The traversal strategy is a cost decision only: forcing data-driven and
// listener-driven traversal over the same inputs must invoke the same
// listeners with the same arguments.
func TestStrategyEquivalence(t *testing.T) {
	symmetricOld := buildTree(map[string]any{
		"a": map[string]any{"x": 1, "y": 2, "z": 3},
		"b": 5,
		"c": map[string]any{"k": 1},
	})
	symmetricNew := tree.SetIn(symmetricOld, []string{"a", "y"}, 9)
	symmetricNew = tree.SetIn(symmetricNew, []string{"a", "w"}, 4)
	symmetricNew = tree.DeleteIn(symmetricNew, []string{"a", "z"})
	symmetricNew = tree.DeleteIn(symmetricNew, []string{"b"})

	asymOld := buildTree(map[string]any{"a": map[string]any{"b": 1, "c": 2}})
	asymNew := tree.SetIn(asymOld, []string{"a"}, 7)

	reverseOld := tree.New().Set("a", 7)
	reverseNew := tree.New().Set("a", buildTree(map[string]any{"b": 1, "c": 2}))

	tests := []struct {
		name    string
		subs    []subSpec
		kp      keypath.Keypath
		oldRoot *tree.Map
		newRoot *tree.Map
	}{
		{
			name: "symmetric containers",
			subs: []subSpec{
				{"", "any"}, {"a", "any"}, {"a.x", "any"}, {"a.y", "update"},
				{"a.z", "remove"}, {"a.w", "add"}, {"b", "delete"}, {"c.k", "any"},
			},
			oldRoot: symmetricOld,
			newRoot: symmetricNew,
		},
		{
			name: "container to scalar",
			subs: []subSpec{
				{"a", "any"}, {"a.b", "delete"}, {"a.c", "any"}, {"a.d", "add"},
			},
			oldRoot: asymOld,
			newRoot: asymNew,
		},
		{
			name: "scalar to container",
			subs: []subSpec{
				{"a", "swap"}, {"a.b", "add"}, {"a.c", "any"}, {"a.d", "any"},
			},
			oldRoot: reverseOld,
			newRoot: reverseNew,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDriven := runWithStrategy(t, StrategyData, tt.subs, tt.kp, tt.oldRoot, tt.newRoot)
			listenerDriven := runWithStrategy(t, StrategyListeners, tt.subs, tt.kp, tt.oldRoot, tt.newRoot)
			auto := runWithStrategy(t, StrategyAuto, tt.subs, tt.kp, tt.oldRoot, tt.newRoot)

			if !reflect.DeepEqual(dataDriven, listenerDriven) {
				t.Errorf("strategies diverge:\n data: %v\n listeners: %v", dataDriven, listenerDriven)
			}
			if !reflect.DeepEqual(dataDriven, auto) {
				t.Errorf("auto diverges from forced strategies:\n data: %v\n auto: %v", dataDriven, auto)
			}
			if len(dataDriven) == 0 {
				t.Error("fixture fired no listeners; it proves nothing")
			}
		})
	}
}

func TestWalk_StopsAtMissingListenerSubtree(t *testing.T) {
	oldRoot := buildTree(map[string]any{"a": map[string]any{"b": 1}})
	newRoot := tree.SetIn(oldRoot, []string{"a", "b"}, 2)

	s := New(oldRoot)
	var records []record
	mustOn(t, s.Cursor("other"), "any", recorder(&records))

	// No listener lives along a.b; the walk stops without firing anything.
	s.Notify(keypath.New("a", "b"), newRoot, oldRoot, true)

	if len(records) != 0 {
		t.Errorf("unrelated listener fired: %v", records)
	}
}
