package loka

import (
	"testing"
)

func buildTree() (*Document, *Element, *Element, *Element) {
	doc := NewDocument()
	parent := doc.CreateElement("div")
	parent.SetAttribute("id", "parent")
	doc.Root().AppendChild(parent)

	child := doc.CreateElement("button")
	child.SetAttribute("id", "child")
	child.AddClass("btn")
	parent.AppendChild(child)

	sibling := doc.CreateElement("span")
	sibling.AddClass("btn")
	doc.Root().AppendChild(sibling)

	return doc, parent, child, sibling
}

func TestQueryMatchesSelectors(t *testing.T) {
	doc, parent, child, sibling := buildTree()

	if got := doc.Query("#parent"); got != parent {
		t.Fatalf("query #parent returned %v", got)
	}
	if got := doc.Query(".btn"); got != child {
		t.Fatalf("query .btn should return first match in document order, got %v", got)
	}
	if got := doc.Query("span"); got != sibling {
		t.Fatalf("query span returned %v", got)
	}
	if got := doc.Query("#missing"); got != nil {
		t.Fatalf("query #missing returned %v", got)
	}

	all := doc.QueryAll(".btn")
	if len(all) != 2 || all[0] != child || all[1] != sibling {
		t.Fatalf("queryAll .btn returned %v", all)
	}
	if got := len(doc.QueryAll("*")); got != 4 {
		t.Fatalf("queryAll * returned %d elements", got)
	}
}

func TestDispatchBubblesToAncestors(t *testing.T) {
	_, parent, child, _ := buildTree()

	var order []string
	child.On("click", func(*Event) { order = append(order, "child") })
	parent.On("click", func(*Event) { order = append(order, "parent") })

	child.Trigger("click", nil)

	if len(order) != 2 || order[0] != "child" || order[1] != "parent" {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestDispatchSetsTargetAndCurrentTarget(t *testing.T) {
	_, parent, child, _ := buildTree()

	var seenTarget, seenCurrent *Element
	parent.On("click", func(ev *Event) {
		seenTarget = ev.Target
		seenCurrent = ev.CurrentTarget
	})

	child.Trigger("click", nil)

	if seenTarget != child {
		t.Fatalf("target = %v, want the dispatching element", seenTarget)
	}
	if seenCurrent != parent {
		t.Fatalf("currentTarget = %v, want the listening element", seenCurrent)
	}
}

func TestListenersFireInRegistrationOrder(t *testing.T) {
	doc := NewDocument()
	el := doc.Root()

	var order []int
	el.On("go", func(*Event) { order = append(order, 1) })
	el.On("go", func(*Event) { order = append(order, 2) })
	el.On("go", func(*Event) { order = append(order, 3) })

	el.Trigger("go", nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestOnceFiresOnlyOnceAndRemoveStaysSafe(t *testing.T) {
	doc := NewDocument()
	el := doc.Root()

	fired := 0
	remove := el.Once("go", func(*Event) { fired++ })

	el.Trigger("go", nil)
	el.Trigger("go", nil)

	if fired != 1 {
		t.Fatalf("once listener fired %d times", fired)
	}

	// removal after auto-removal must not panic or remove someone else
	remove()
	remove()
}

func TestRemoveListenerIsIdempotent(t *testing.T) {
	doc := NewDocument()
	el := doc.Root()

	first := 0
	second := 0
	removeFirst := el.On("go", func(*Event) { first++ })
	el.On("go", func(*Event) { second++ })

	removeFirst()
	removeFirst()
	el.Trigger("go", nil)

	if first != 0 {
		t.Fatalf("removed listener still fired %d times", first)
	}
	if second != 1 {
		t.Fatalf("surviving listener fired %d times", second)
	}
}

func TestContains(t *testing.T) {
	doc, parent, child, sibling := buildTree()

	if !parent.Contains(child) {
		t.Fatal("parent should contain child")
	}
	if !parent.Contains(parent) {
		t.Fatal("an element contains itself")
	}
	if parent.Contains(sibling) {
		t.Fatal("parent should not contain sibling")
	}
	if !doc.Root().Contains(child) {
		t.Fatal("root should contain all attached elements")
	}
}

func TestClassMutation(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")

	el.AddClass("a")
	el.AddClass("b")
	el.AddClass("a") // duplicate is a no-op
	if got := el.Classes(); len(got) != 2 {
		t.Fatalf("classes = %v", got)
	}

	el.RemoveClass("a")
	if el.HasClass("a") {
		t.Fatal("class a should be removed")
	}
	el.RemoveClass("missing") // absent removal is a no-op

	if on := el.ToggleClass("c"); !on {
		t.Fatal("toggle on should report true")
	}
	if on := el.ToggleClass("c"); on {
		t.Fatal("toggle off should report false")
	}
}

func TestEventPropertyPrefersFieldsOverDetail(t *testing.T) {
	ev := NewEvent("keydown", map[string]Value{"key": NewString("Enter")})
	ev.Detail = map[string]Value{"key": NewString("shadowed"), "extra": NewInt(7)}

	if v, ok := ev.Property("key"); !ok || v.String() != "Enter" {
		t.Fatalf("key = %v, %v", v, ok)
	}
	if v, ok := ev.Property("extra"); !ok || v.Int() != 7 {
		t.Fatalf("extra = %v, %v", v, ok)
	}
	if _, ok := ev.Property("missing"); ok {
		t.Fatal("missing property should not resolve")
	}
}
