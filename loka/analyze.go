package loka

import "sort"

// Metadata summarizes a compiled script for tooling: which events it listens
// for or sends, which commands and selectors it uses, and a rough complexity
// count (one per command node and handler).
type Metadata struct {
	Complexity int      `json:"complexity"`
	Events     []string `json:"events"`
	Commands   []string `json:"commands"`
	Selectors  []string `json:"selectors"`
}

// Analyze builds metadata for a script.
func Analyze(script *Script) Metadata {
	c := &collector{
		events:    make(map[string]struct{}),
		commands:  make(map[string]struct{}),
		selectors: make(map[string]struct{}),
	}

	for _, handler := range script.Handlers {
		c.complexity++
		c.events[handler.EventName] = struct{}{}
		if handler.Selector != "" {
			c.selectors[handler.Selector] = struct{}{}
		}
		if handler.Filter != nil {
			c.expr(handler.Filter)
		}
		c.body(handler.Body)
	}
	c.body(script.Commands)

	return Metadata{
		Complexity: c.complexity,
		Events:     sortedKeys(c.events),
		Commands:   sortedKeys(c.commands),
		Selectors:  sortedKeys(c.selectors),
	}
}

type collector struct {
	complexity int
	events     map[string]struct{}
	commands   map[string]struct{}
	selectors  map[string]struct{}
}

func (c *collector) body(nodes []*CommandNode) {
	for _, node := range nodes {
		c.command(node)
	}
}

func (c *collector) command(node *CommandNode) {
	c.complexity++
	c.commands[node.Name] = struct{}{}

	for _, arg := range node.Args {
		c.expr(arg)
	}
	for _, mod := range node.Modifiers {
		c.expr(mod)
	}

	switch node.Name {
	case "send", "trigger":
		if len(node.Args) == 1 {
			if lit, ok := node.Args[0].(*LiteralExpr); ok && lit.Value.Kind() == KindString {
				c.events[lit.Value.String()] = struct{}{}
			}
		}
	}

	if node.Loop != nil {
		if node.Loop.EventName != "" {
			c.events[node.Loop.EventName] = struct{}{}
		}
		for _, expr := range []Expr{node.Loop.Collection, node.Loop.Condition, node.Loop.Count, node.Loop.EventTarget} {
			if expr != nil {
				c.expr(expr)
			}
		}
	}
	if node.Wait != nil {
		for _, cond := range node.Wait.Conditions {
			if cond.EventName != "" {
				c.events[cond.EventName] = struct{}{}
			}
			if cond.Time != nil {
				c.expr(cond.Time)
			}
			if cond.From != nil {
				c.expr(cond.From)
			}
		}
	}
	if node.If != nil {
		c.expr(node.If.Condition)
		c.body(node.If.Then)
		c.body(node.If.Else)
	}
	c.body(node.Body)
}

func (c *collector) expr(expr Expr) {
	switch e := expr.(type) {
	case *SelectorExpr:
		c.selectors[e.Selector] = struct{}{}
	case *PropExpr:
		c.expr(e.Target)
	case *UnaryExpr:
		c.expr(e.Operand)
	case *BinaryExpr:
		c.expr(e.Left)
		c.expr(e.Right)
	case *ArrayExpr:
		for _, item := range e.Items {
			c.expr(item)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
