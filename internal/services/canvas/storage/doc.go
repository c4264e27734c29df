// Package storage defines persistence contracts for the canvas document:
// placed components and the wires between their parameters.
package storage
