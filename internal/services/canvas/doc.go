// Package canvas models a Grasshopper-style document of components and wires
// and exposes it to protocol engines as capability modules: tools that edit
// the document, resources that describe it, and prompts that guide clients.
package canvas
