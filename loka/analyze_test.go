package loka

import (
	"reflect"
	"testing"
)

func TestAnalyzeCollectsScriptSurface(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, `on click from #btn
  add .active to .item
  trigger save
end
repeat 3 times
  put "x" into #out
end
wait 10ms or for done`)

	meta := Analyze(script)

	if meta.Complexity != 6 {
		t.Fatalf("complexity = %d", meta.Complexity)
	}
	if want := []string{"click", "done", "save"}; !reflect.DeepEqual(meta.Events, want) {
		t.Fatalf("events = %v", meta.Events)
	}
	if want := []string{"add", "put", "repeat", "trigger", "wait"}; !reflect.DeepEqual(meta.Commands, want) {
		t.Fatalf("commands = %v", meta.Commands)
	}
	if want := []string{"#btn", "#out", ".active", ".item"}; !reflect.DeepEqual(meta.Selectors, want) {
		t.Fatalf("selectors = %v", meta.Selectors)
	}
}

func TestAnalyzeCountsLoopEvents(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "repeat until event saved\nend")

	meta := Analyze(script)

	if want := []string{"saved"}; !reflect.DeepEqual(meta.Events, want) {
		t.Fatalf("events = %v", meta.Events)
	}
	if meta.Complexity != 1 {
		t.Fatalf("complexity = %d", meta.Complexity)
	}
}

func TestAnalyzeSeesSelectorsInsideFilters(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "on click [#flag == nil]\nend")

	meta := Analyze(script)

	if want := []string{"#flag"}; !reflect.DeepEqual(meta.Selectors, want) {
		t.Fatalf("selectors = %v", meta.Selectors)
	}
}

func TestAnalyzeEmptyScript(t *testing.T) {
	r := newTestRuntime(t, Config{})
	script := compileSource(t, r, "")

	meta := Analyze(script)

	if meta.Complexity != 0 || len(meta.Events) != 0 || len(meta.Commands) != 0 || len(meta.Selectors) != 0 {
		t.Fatalf("metadata = %+v", meta)
	}
}
