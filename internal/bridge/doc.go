// Package bridge is the native bridge layer between mobile hosts and the
// embedded SQL engine.
//
// What: It owns every native resource the hosts can reach (database
// handles, their single connection, prepared statements and serialized
// result payloads) and exposes a small, name-keyed operation set on top of
// them: open/close/connect/disconnect, ad-hoc query/execute/run, the
// prepare/bind/execute statement lifecycle, and activation of the engine
// modules that are compiled in statically.
//
// How: Resources are held in a Registry keyed by the host-supplied logical
// database name. Statements and payloads are referenced by registry-issued
// ids, never by raw engine pointers, so a released id is detectable as
// ErrStaleHandle instead of dangling. Host parameter values cross the
// boundary as a closed tagged union (Value) and an exhaustive switch drives
// the typed bind dispatch. All engine calls on one database are serialized
// by a per-database lock; different databases proceed independently.
//
// Why: The engine (go-sqlite-lite) is a synchronous, manually managed
// foreign API. Centralizing ownership and lifetime rules here keeps the
// per-platform protocol adapters thin and behaviorally identical.
package bridge
