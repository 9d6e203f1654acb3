// Package domain holds the novel's vocabulary: books, sentences, periods, events and
// the sentinel errors every layer maps on. It also declares the ports the service
// depends on (TokenLedger, TokenFunder, StateStore, EventPublisher); adapters implement them.
package domain
