// Package loka implements the LokaScript execution engine: a small
// hyperscript-flavoured language that drives element behavior declaratively.
// The runtime supports:
//   - Event handlers via `on <event>[(params)][filter][count][from <source>]
//     [debounced|throttled at <delay>][queue <strategy>] ... end`.
//   - Control flow via `repeat` (for/times/while/until/until-event/forever),
//     `if`, `break`, `continue`, `halt`, and `return`.
//   - Asynchronous waits via `wait <duration>` and `wait for <event>`,
//     including races (`wait 50ms or for click`) and event property
//     destructuring (`wait for mousemove(clientX, clientY)`).
//   - A leaf command set for class, attribute, text, visibility and variable
//     mutation (`add`, `remove`, `toggle`, `show`, `hide`, `set`, `put`,
//     `log`, `increment`, `decrement`, `send`, `trigger`).
//
// Comments beginning with `--` are ignored. Every command implements a
// uniform dispatch contract (ParseInput/Validate/Execute); hosts can register
// their own commands on a Runtime to participate in both direct and
// event-triggered invocation. Scripts run against an in-memory document; the
// runtime dispatches domain-prefixed synthetic events (loka:error,
// loka:command) from bound elements.
package loka
