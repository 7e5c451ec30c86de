package loka

import "testing"

func TestScopeSetUpdatesWhereFound(t *testing.T) {
	root := NewScope()
	root.Define("x", NewInt(1))

	child := root.Child()
	child.Set("x", NewInt(2))

	if v, _ := root.Get("x"); v.Int() != 2 {
		t.Fatalf("write through child should land in root, got %v", v)
	}

	child.Set("y", NewInt(3))
	if _, ok := root.Get("y"); ok {
		t.Fatal("new name should be defined in the child frame, not root")
	}
	if v, _ := child.Get("y"); v.Int() != 3 {
		t.Fatalf("child y = %v", v)
	}
}

func TestIsolatedChildReadsThroughButWritesPrivately(t *testing.T) {
	root := NewScope()
	root.Define("x", NewInt(1))

	iso := root.IsolatedChild()
	if v, ok := iso.Get("x"); !ok || v.Int() != 1 {
		t.Fatalf("isolated child should read parent values, got %v %v", v, ok)
	}

	iso.Set("x", NewInt(99))
	if v, _ := root.Get("x"); v.Int() != 1 {
		t.Fatalf("isolated write leaked into parent: %v", v)
	}
	if v, _ := iso.Get("x"); v.Int() != 99 {
		t.Fatalf("isolated overlay lost its own write: %v", v)
	}
}

func TestContextSetVarPrefersExistingFrame(t *testing.T) {
	r := newTestRuntime(t, Config{})
	ctx := r.NewContext(nil)

	ctx.Globals.Define("g", NewInt(1))
	ctx.SetVar("g", NewInt(2))
	if v, _ := ctx.Globals.Get("g"); v.Int() != 2 {
		t.Fatalf("existing global should be updated in place, got %v", v)
	}

	ctx.SetVar("fresh", NewInt(5))
	if _, ok := ctx.Globals.Get("fresh"); ok {
		t.Fatal("new variable should land in locals")
	}
	if v, ok := ctx.Locals.Get("fresh"); !ok || v.Int() != 5 {
		t.Fatalf("fresh = %v %v", v, ok)
	}
}

func TestEventChildBindsEventAndIsolatesWrites(t *testing.T) {
	r := newTestRuntime(t, Config{})
	me := attachedElement(r, "div", "host")
	other := attachedElement(r, "button", "src")

	base := r.NewContext(me)
	base.Globals.Define("shared", NewInt(1))

	ev := NewEvent("click", nil)
	ev.Target = other
	child := base.EventChild(ev)

	if child.Event != ev {
		t.Fatal("event not bound")
	}
	if child.Target != other {
		t.Fatal("target not bound")
	}
	if child.Me != me {
		t.Fatal("me should carry over")
	}
	if child.It.Kind() != KindElement || child.It.Element() != other {
		t.Fatalf("it should start as the event target, got %v", child.It)
	}

	child.SetVar("shared", NewInt(42))
	if v, _ := base.Globals.Get("shared"); v.Int() != 1 {
		t.Fatalf("handler-local write leaked into base context: %v", v)
	}
}

func TestContextDocumentFallsBackToRuntime(t *testing.T) {
	r := newTestRuntime(t, Config{})
	ctx := r.NewContext(nil)
	if ctx.Document() != r.Document() {
		t.Fatal("unbound context should resolve the runtime document")
	}
}
