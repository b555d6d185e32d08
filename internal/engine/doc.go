// Package engine implements the per-sender conversation state machine.
//
// # Overview
//
// The engine sits between the webhook boundary and the persistence layer.
// Given one inbound message and the sender's current session (if any), it
// decides the reply text and how the session should change. It is the only
// part of shortline with real sequencing logic; everything around it is I/O
// glue.
//
// # Decision flow
//
// For each Process call:
//
//  1. Load the sender's session from the session store.
//  2. Session with a pending step: consume the message as that step's
//     free-form input (resume). Every resumable step is exactly one turn
//     long; on success the session is cleared, never chained deeper.
//  3. No session: parse the message as a 1-4 digit command code, look it up
//     in the catalog, and dispatch on the handler kind. Flow-starting
//     handlers return a set transition; synchronous handlers perform their
//     effect and return no transition.
//
// # Transitions
//
// Process never writes the session store. It returns a Transition (none,
// set, or clear) and the caller persists it. This keeps the engine a pure
// decision layer over its collaborators and makes the contract directly
// testable.
//
// # Error handling
//
// Malformed or unrecognized input is answered with a fixed guidance reply
// and is never an error. A session with an unrecognized step is recovered
// locally: generic reply, clear transition, distinct warning log. Failures
// of capability calls (profile upsert, ticket creation, balance lookup)
// propagate as *SideEffectError with no reply and no transition; the caller
// decides whether to retry.
package engine
