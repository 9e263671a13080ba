// Package dag holds a small dependency graph of named steps. The command
// pipeline uses it to order phases: a command names its final phase and the
// graph yields every phase it transitively requires, prerequisites first.
package dag
