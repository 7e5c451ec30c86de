package loka

import (
	"context"
	"testing"
	"time"
)

// runRepeat compiles a script whose single top-level command is a repeat and
// executes it, returning the loop's result hash and the context it ran in.
func runRepeat(t testing.TB, r *Runtime, source string, me *Element) (RepeatResult, *Context) {
	t.Helper()
	script := compileSource(t, r, source)
	if len(script.Commands) != 1 || script.Commands[0].Loop == nil {
		t.Fatalf("expected a single repeat command, got %+v", script.Commands)
	}
	ctx := r.NewContext(me)
	val, flow, err := r.runCommand(script.Commands[0], ctx)
	if err != nil {
		t.Fatalf("repeat failed: %v", err)
	}
	if !flow.Normal() {
		t.Fatalf("repeat leaked flow %v", flow.Kind)
	}
	hash := val.Hash()
	return RepeatResult{
		Iterations:  int(hash["iterations"].Int()),
		Completed:   hash["completed"].Bool(),
		Interrupted: hash["interrupted"].Bool(),
	}, ctx
}

func TestRepeatTimesRunsExactlyNTimes(t *testing.T) {
	r := newTestRuntime(t, Config{})
	bump := registerBump(t, r)
	me := attachedElement(r, "div", "host")

	res, _ := runRepeat(t, r, "repeat 4 times\n  bump\nend", me)

	if bump.count() != 4 {
		t.Fatalf("body ran %d times", bump.count())
	}
	if res.Iterations != 4 || !res.Completed || res.Interrupted {
		t.Fatalf("result = %+v", res)
	}
}

func TestRepeatTimesBindsItToIterationNumber(t *testing.T) {
	r := newTestRuntime(t, Config{})
	mark := registerMark(t, r)
	me := attachedElement(r, "div", "host")

	_, ctx := runRepeat(t, r, "repeat 3 times\n  mark it\nend", me)

	got := mark.values()
	if len(got) != 3 || got[0].Int() != 1 || got[1].Int() != 2 || got[2].Int() != 3 {
		t.Fatalf("it per iteration = %v", got)
	}
	_ = ctx
}

func TestRepeatTimesWithEmptyBodyLeavesItAtCount(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")

	_, ctx := runRepeat(t, r, "repeat 3 times\nend", me)

	// nothing overwrote it, so the final iteration number remains
	if ctx.It.Int() != 3 {
		t.Fatalf("it after empty loop = %v", ctx.It)
	}
}

func TestRepeatZeroTimesSkipsBody(t *testing.T) {
	r := newTestRuntime(t, Config{})
	bump := registerBump(t, r)
	me := attachedElement(r, "div", "host")

	res, _ := runRepeat(t, r, "repeat 0 times\n  bump\nend", me)

	if bump.count() != 0 {
		t.Fatalf("body ran %d times", bump.count())
	}
	if res.Iterations != 0 || !res.Completed {
		t.Fatalf("result = %+v", res)
	}
}

func TestRepeatForBindsVariableAndIndex(t *testing.T) {
	r := newTestRuntime(t, Config{})
	mark := registerMark(t, r)
	me := attachedElement(r, "div", "host")

	runRepeat(t, r, `repeat for word in ["a", "b", "c"] index i`+"\n  mark word, i\nend", me)

	got := mark.values()
	if len(got) != 6 {
		t.Fatalf("recorded = %v", got)
	}
	wantWords := []string{"a", "b", "c"}
	for i, w := range wantWords {
		if got[2*i].String() != w {
			t.Fatalf("word[%d] = %v", i, got[2*i])
		}
		if got[2*i+1].Int() != int64(i) {
			t.Fatalf("index[%d] = %v", i, got[2*i+1])
		}
	}
}

func TestRepeatForOverSingletonAndNil(t *testing.T) {
	r := newTestRuntime(t, Config{})
	bump := registerBump(t, r)
	me := attachedElement(r, "div", "host")

	res, _ := runRepeat(t, r, "repeat for x in 5\n  bump\nend", me)
	if res.Iterations != 1 || bump.count() != 1 {
		t.Fatalf("singleton collection: %+v, runs %d", res, bump.count())
	}

	res, _ = runRepeat(t, r, "repeat for x in nil\n  bump\nend", me)
	if res.Iterations != 0 || !res.Completed {
		t.Fatalf("nil collection: %+v", res)
	}
}

func TestRepeatWhileStopsWhenConditionFalsifies(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")

	script := compileSource(t, r, "set n to 0\nrepeat while n < 3\n  increment n\nend")
	got, err := r.Run(context.Background(), script, me)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// it holds the last body value: the final increment result
	if got.Int() != 3 {
		t.Fatalf("n = %v", got)
	}
}

func TestRepeatUntilInvertsCondition(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")

	script := compileSource(t, r, "set n to 0\nrepeat until n == 4\n  increment n\nend")
	got, err := r.Run(context.Background(), script, me)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got.Int() != 4 {
		t.Fatalf("n = %v", got)
	}
}

func TestRepeatBreakMarksInterrupted(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")

	res, ctx := runRepeat(t, r, "repeat forever\n  increment n\n  if n == 3\n    break\n  end\nend", me)

	if !res.Completed || !res.Interrupted {
		t.Fatalf("break result = %+v", res)
	}
	if res.Iterations != 3 {
		t.Fatalf("iterations = %d", res.Iterations)
	}
	if v, _ := ctx.Lookup("n"); v.Int() != 3 {
		t.Fatalf("n = %v", v)
	}
}

func TestRepeatContinueSkipsRestOfBody(t *testing.T) {
	r := newTestRuntime(t, Config{})
	bump := registerBump(t, r)
	me := attachedElement(r, "div", "host")

	res, _ := runRepeat(t, r, "repeat 4 times\n  if it < 3\n    continue\n  end\n  bump\nend", me)

	// iterations 1 and 2 skip the bump, 3 and 4 reach it
	if bump.count() != 2 {
		t.Fatalf("bump ran %d times", bump.count())
	}
	if res.Iterations != 4 || !res.Completed || res.Interrupted {
		t.Fatalf("result = %+v", res)
	}
}

func TestRepeatReturnPropagatesThroughLoop(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")

	got := runSource(t, r, `repeat 10 times`+"\n  if it == 2\n    return \"found\"\n  end\nend\nadd .after", me)
	if got.String() != "found" {
		t.Fatalf("returned = %v", got)
	}
	if me.HasClass("after") {
		t.Fatal("commands after returning loop ran")
	}
}

func TestConditionalLoopRespectsSafetyCap(t *testing.T) {
	r := newTestRuntime(t, Config{LoopCap: 7})
	bump := registerBump(t, r)
	me := attachedElement(r, "div", "host")

	res, _ := runRepeat(t, r, "repeat while true\n  bump\nend", me)

	if res.Iterations != 7 || !res.Completed {
		t.Fatalf("capped loop result = %+v", res)
	}
	if bump.count() != 7 {
		t.Fatalf("bump ran %d times", bump.count())
	}
}

func TestForeverLoopRespectsSafetyCap(t *testing.T) {
	r := newTestRuntime(t, Config{LoopCap: 5})
	me := attachedElement(r, "div", "host")

	res, _ := runRepeat(t, r, "repeat forever\nend", me)
	if res.Iterations != 5 || !res.Completed {
		t.Fatalf("result = %+v", res)
	}
}

func TestRepeatUntilEventStopsWhenEventFires(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")

	go func() {
		time.Sleep(20 * time.Millisecond)
		me.Trigger("done", nil)
	}()

	start := time.Now()
	res, _ := runRepeat(t, r, "repeat until event done\n  wait 1ms\nend", me)
	elapsed := time.Since(start)

	if !res.Completed || res.Interrupted {
		t.Fatalf("result = %+v", res)
	}
	if res.Iterations < 1 {
		t.Fatalf("loop never iterated: %+v", res)
	}
	// well under the 10s the capped loop would otherwise take
	if elapsed > 2*time.Second {
		t.Fatalf("loop did not stop on the event (took %v)", elapsed)
	}
}

func TestRepeatUntilEventRemovesListenerAfterLoop(t *testing.T) {
	r := newTestRuntime(t, Config{LoopCap: 3})
	me := attachedElement(r, "div", "host")

	runRepeat(t, r, "repeat until event finished\nend", me)

	// cap ended the loop; the once listener must be gone
	me.mu.Lock()
	remaining := len(me.listeners["finished"])
	me.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("%d listeners left behind", remaining)
	}
}

func TestRepeatNegativeCountFails(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")
	ctx := r.NewContext(me)

	script := compileSource(t, r, "repeat (0 - 2) times\nend")
	_, _, err := r.runCommand(script.Commands[0], ctx)
	if err == nil {
		t.Fatal("expected negative count to fail")
	}
}

func TestRepeatCancellationStopsLoop(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")

	script := compileSource(t, r, "repeat forever\n  wait 5ms\nend")
	cctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Run(cctx, script, me)
	if err == nil {
		t.Fatal("cancelled run should fail")
	}
}
