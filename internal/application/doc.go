// Package application wires a schema document into a resolved registry and
// the registry into the inspection router and HTTP server, keeping the main
// package focused on CLI parsing and orchestration.
package application
