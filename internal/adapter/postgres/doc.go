// Package postgres implements the token ledger and state store on PostgreSQL.
//
// Schema changes ship as embedded tern migrations applied under an advisory lock.
package postgres
