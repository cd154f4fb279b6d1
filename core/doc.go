// Package core contains the planner domain types, the contracts of every
// pipeline stage and the per-event pipeline itself. Provider adapters depend
// on this package; core must not depend on provider or transport adapters.
package core
