package queue

import "github.com/jrsteele09/go-launcher-auth/provision"

// Observers is the scheduler's notification surface. The scheduler runs
// detached from any caller, so progress is reported through callbacks rather
// than return values.
//
// Every callback fires on the scheduler's own goroutine; a consumer with
// thread or UI affinity must re-dispatch itself. Delivery is at-least-once,
// in issuance order per account. Any field may be nil.
type Observers struct {
	// OnCharacterCreated fires after each successful creation with the
	// provider's current slot list for the account.
	OnCharacterCreated func(accountID string, slots []provision.CharacterSlot)

	// OnBatchCompleted fires once per batch that ran to completion, with the
	// created and skipped counts. Cancelled batches do not complete.
	OnBatchCompleted func(accountID string, created, skipped int)

	// OnPendingCountChanged fires whenever the pending-batch counter moves.
	OnPendingCountChanged func(pending int)

	// OnStatus carries free-text progress lines for display.
	OnStatus func(message string)
}
