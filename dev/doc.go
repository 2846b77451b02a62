// Package dev implements the device lifecycle and composition engine of a
// driver host: a reference-counted device tree whose nodes wrap
// driver-supplied capability tables, plus the Context that creates, binds,
// composes, suspends, unbinds and destroys them.
//
// One coarse serialization lock guards all tree mutation. The single most
// important invariant of the package is that this lock is never held while
// driver code runs: every capability-table hook is invoked in an explicit
// unlocked window, so hooks can re-enter the Context freely.
//
// Destruction is deferred. A device whose last reference drops is queued for
// finalization, which runs its Release hook and then parks it in a bounded
// ring of recently-dead devices with a poisoned capability table, so a
// use-after-destroy crashes deterministically instead of corrupting state.
package dev
