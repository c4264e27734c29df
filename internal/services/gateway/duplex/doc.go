// Package duplex provides the in-process byte channels that connect the HTTP
// bridge to the protocol engine.
//
// A Pair holds two Pipes. The bridge writes newline-delimited request frames
// into Requests and reads response frames from Responses; the engine sees the
// opposite halves through EngineSide.
package duplex
