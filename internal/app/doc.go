// Package app contains the core application logic. It wires the project
// configuration, file system, resolver, analyzer and dependency graph
// together and runs the bundle-order lifecycle, decoupled from any specific
// entrypoint like a CLI or server.
package app
