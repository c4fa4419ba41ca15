// Package store defines the persistence contract for help requests,
// learned knowledge entries, and call logs, plus an embedded BadgerDB
// implementation.
//
// The contract is deliberately narrow: the escalation core only needs
// CRUD, conditional status transitions, and a substring text search.
// Status transitions (PENDING -> RESOLVED, PENDING -> TIMEOUT) are
// atomic conditional updates; they fail if the record is not currently
// PENDING, which is what makes the lifecycle state machine safe across
// processes.
package store
