// Package app provides the application service layer.
//
// Service is the novel's facade: admin checks, the aggregate lock, ledger charges,
// state persistence and event publication. Depends on domain ports, not concrete adapters.
package app
