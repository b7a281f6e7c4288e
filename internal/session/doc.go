// Package session gives each conversation its own cart and agent.
//
// A [Session] serializes every message behind one lock, so the cart and conversation history are
// never mutated concurrently even when a transport serves requests in parallel. The [Manager]
// creates, looks up and destroys sessions by ID; terminal transports create exactly one.
package session
