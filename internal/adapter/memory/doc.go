// Package memory provides in-process implementations of the token ledger and
// state store, used for local runs and tests.
package memory
