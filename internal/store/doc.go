// Package store is the durable run ledger behind the CLI.
//
// Every evaluation a command performs can be recorded as a run: a UUIDv7
// token, the command name, a content digest of the inputs, and the JSON
// result. Digests make recorded results addressable by what was computed
// rather than when, which is what the memoization path keys on: an identical
// request short-circuits to the stored row.
//
// Storage is a single SQLite file in WAL mode with one writer connection.
package store
