// Package redis implements the token ledger, state store and event publisher on Redis.
//
// Balances are plain integer keys; debits and one-time grants run as Lua scripts so the
// check and the write are atomic on the server.
package redis
