// Package service owns the gateway lifecycle: it binds the listener, builds
// a fresh duplex pair and protocol engine per generation, supervises the
// accept loop and the engine, and reports every state transition.
//
// A Gateway is an explicit handle. Start on a live gateway restarts it, so
// at most one generation is ever live.
package service
