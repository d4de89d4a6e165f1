package paystackwebhook

import "github.com/nairamart/nairamart-backend/pkg/enums"

// transition describes the outcome of moving a transaction between statuses.
type transition int

const (
	// transitionApply performs the status change.
	transitionApply transition = iota
	// transitionReplay is a safe no-op: the transaction already carries the
	// target status (gateway redelivery).
	transitionReplay
	// transitionReject means the change would rewrite a terminal status.
	transitionReject
)

// classify applies the one-way transaction lifecycle: pending may move to any
// terminal status, terminal statuses only accept their own replay.
func classify(from, to enums.TransactionStatus) transition {
	if from == to {
		return transitionReplay
	}
	if from == enums.TransactionStatusPending && to.IsTerminal() {
		return transitionApply
	}
	return transitionReject
}
