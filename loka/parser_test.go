package loka

import (
	"testing"
	"time"
)

func TestParseFullHandlerDescriptor(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, `on keydown(key) [key == "Enter"] 2 to 5 from #input debounced at 200ms queue all
  add .active
end`)

	if len(script.Handlers) != 1 {
		t.Fatalf("handlers = %d", len(script.Handlers))
	}
	h := script.Handlers[0]
	if h.EventName != "keydown" {
		t.Fatalf("event = %q", h.EventName)
	}
	if len(h.Params) != 1 || h.Params[0] != "key" {
		t.Fatalf("params = %v", h.Params)
	}
	if h.Filter == nil {
		t.Fatal("filter missing")
	}
	if h.CountFrom == nil || h.CountTo == nil {
		t.Fatal("count range missing")
	}
	if h.Source != SourceSelector || h.Selector != "#input" {
		t.Fatalf("source = %v %q", h.Source, h.Selector)
	}
	if h.Timing == nil || h.Timing.Kind != TimingDebounce {
		t.Fatalf("timing = %+v", h.Timing)
	}
	if h.Queue != QueueAll {
		t.Fatalf("queue = %q", h.Queue)
	}
	if len(h.Body) != 1 || h.Body[0].Name != "add" {
		t.Fatalf("body = %+v", h.Body)
	}
}

func TestParseHandlerDefaults(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "on click\n  toggle .on\nend")

	h := script.Handlers[0]
	if h.Source != SourceSelf {
		t.Fatalf("default source = %v", h.Source)
	}
	if h.Queue != QueueLast {
		t.Fatalf("default queue = %v", h.Queue)
	}
	if h.Every || h.Filter != nil || h.Timing != nil || h.CountFrom != nil {
		t.Fatalf("unexpected descriptor fields: %+v", h)
	}
}

func TestParseEveryAndElsewhere(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "on every click from elsewhere\n  hide\nend")

	h := script.Handlers[0]
	if !h.Every {
		t.Fatal("every not set")
	}
	if h.Source != SourceElsewhere {
		t.Fatalf("source = %v", h.Source)
	}
}

func TestParseLoopKinds(t *testing.T) {
	r := newTestRuntime(t, Config{})
	cases := []struct {
		source string
		kind   LoopKind
	}{
		{"repeat for item in [1, 2] index i\nend", LoopFor},
		{"repeat 3 times\nend", LoopTimes},
		{"repeat while x < 3\nend", LoopWhile},
		{"repeat until x == 3\nend", LoopUntil},
		{"repeat until event done\nend", LoopUntilEvent},
		{"repeat forever\nend", LoopForever},
	}
	for _, tc := range cases {
		script := compileSource(t, r, tc.source)
		if len(script.Commands) != 1 || script.Commands[0].Loop == nil {
			t.Fatalf("%q: no loop clause", tc.source)
		}
		if got := script.Commands[0].Loop.Kind; got != tc.kind {
			t.Fatalf("%q: kind = %q, want %q", tc.source, got, tc.kind)
		}
	}
}

func TestParseForLoopBindings(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "repeat for item in [1, 2, 3] index i\n  log item\nend")

	loop := script.Commands[0].Loop
	if loop.Variable != "item" || loop.IndexVariable != "i" {
		t.Fatalf("bindings = %q %q", loop.Variable, loop.IndexVariable)
	}
	if loop.Collection == nil {
		t.Fatal("collection missing")
	}
}

func TestParseUntilEventWithSource(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "repeat until event finished from #job\n  wait 10ms\nend")

	loop := script.Commands[0].Loop
	if loop.Kind != LoopUntilEvent || loop.EventName != "finished" {
		t.Fatalf("loop = %+v", loop)
	}
	if loop.EventTarget == nil {
		t.Fatal("event target missing")
	}
}

func TestParseWaitRace(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "wait 50ms or for click or for keyup(key) from #input")

	wait := script.Commands[0].Wait
	if wait == nil || len(wait.Conditions) != 3 {
		t.Fatalf("wait = %+v", wait)
	}
	if wait.Conditions[0].Time == nil {
		t.Fatal("first arm should be a time condition")
	}
	if wait.Conditions[1].EventName != "click" {
		t.Fatalf("second arm = %+v", wait.Conditions[1])
	}
	third := wait.Conditions[2]
	if third.EventName != "keyup" || len(third.Params) != 1 || third.Params[0] != "key" || third.From == nil {
		t.Fatalf("third arm = %+v", third)
	}
}

func TestParseWaitRaceOfTwoTimers(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "wait 20ms or 30ms")

	// `or` separates arms, it is not logical-or between the durations
	wait := script.Commands[0].Wait
	if wait == nil || len(wait.Conditions) != 2 {
		t.Fatalf("wait = %+v", wait)
	}
	for i, cond := range wait.Conditions {
		if cond.Time == nil || cond.EventName != "" {
			t.Fatalf("arm %d = %+v", i, cond)
		}
		if _, ok := cond.Time.(*BinaryExpr); ok {
			t.Fatalf("arm %d absorbed the race separator: %+v", i, cond.Time)
		}
	}
}

func TestParseWaitRaceArmAfterEventSource(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "wait for click from #btn or 2s")

	wait := script.Commands[0].Wait
	if wait == nil || len(wait.Conditions) != 2 {
		t.Fatalf("wait = %+v", wait)
	}
	if wait.Conditions[0].EventName != "click" || wait.Conditions[0].From == nil {
		t.Fatalf("first arm = %+v", wait.Conditions[0])
	}
	if wait.Conditions[1].Time == nil {
		t.Fatalf("second arm = %+v", wait.Conditions[1])
	}
}

func TestParseDurationLiteral(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "wait 1.5s")

	lit, ok := script.Commands[0].Wait.Conditions[0].Time.(*LiteralExpr)
	if !ok {
		t.Fatalf("time = %T", script.Commands[0].Wait.Conditions[0].Time)
	}
	if lit.Value.Kind() != KindDuration || lit.Value.Duration() != 1500*time.Millisecond {
		t.Fatalf("duration = %v", lit.Value)
	}
}

func TestParseSendDetailPairs(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, `send score(points: 10, reason: "bonus") to #board`)

	node := script.Commands[0]
	if node.Name != "send" {
		t.Fatalf("name = %q", node.Name)
	}
	lit, ok := node.Args[0].(*LiteralExpr)
	if !ok || lit.Value.String() != "score" {
		t.Fatalf("event arg = %+v", node.Args[0])
	}
	if node.Modifier("points") == nil || node.Modifier("reason") == nil {
		t.Fatalf("detail pairs missing: %+v", node.Modifiers)
	}
	if node.Modifier("to") == nil {
		t.Fatal("target modifier missing")
	}
}

func TestParseCommandModifiers(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, `set @title to "hello" on .cards`)

	node := script.Commands[0]
	if _, ok := node.Args[0].(*AttrExpr); !ok {
		t.Fatalf("arg = %T", node.Args[0])
	}
	if node.Modifier("to") == nil || node.Modifier("on") == nil {
		t.Fatalf("modifiers = %+v", node.Modifiers)
	}
}

func TestParseThenSeparatesCommands(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "add .a then add .b then add .c")

	if len(script.Commands) != 3 {
		t.Fatalf("commands = %d", len(script.Commands))
	}
}

func TestParseCommentsAreIgnored(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "-- leading comment\nadd .a -- trailing comment\n-- only a comment\nadd .b")

	if len(script.Commands) != 2 {
		t.Fatalf("commands = %d", len(script.Commands))
	}
}

func TestParseIfElse(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "if x > 1\n  add .big\nelse\n  add .small\nend")

	clause := script.Commands[0].If
	if clause == nil || clause.Condition == nil {
		t.Fatalf("if clause = %+v", clause)
	}
	if len(clause.Then) != 1 || len(clause.Else) != 1 {
		t.Fatalf("branches = %d/%d", len(clause.Then), len(clause.Else))
	}
}

func TestParseErrors(t *testing.T) {
	r := newTestRuntime(t, Config{})
	cases := []struct {
		source string
		want   string
	}{
		{"on click\n  add .x", "expected END"},
		{"on click queue sometimes\nend", "unknown queue strategy"},
		{"set x to 1 to 2", "duplicate"},
		{"repeat 3\nend", "expected TIMES"},
		{"on\n  add .x\nend", "expected event name"},
	}
	for _, tc := range cases {
		requireCompileErrorContains(t, r, tc.source, tc.want)
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	r := newTestRuntime(t, Config{})
	_, err := r.Compile("add .x\nset y to")
	if err == nil {
		t.Fatal("expected parse error")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if perr.Pos.Line != 2 {
		t.Fatalf("line = %d, want 2", perr.Pos.Line)
	}
}

func TestScriptSourceRoundTrip(t *testing.T) {
	r := newTestRuntime(t, Config{})
	source := "on click\n  toggle .on\nend"
	script := compileSource(t, r, source)
	if script.Source() != source {
		t.Fatalf("source = %q", script.Source())
	}
}
