package service

import "rentmarket/internal/models"

// transitions is the unified status graph: the rental flow
// (pending/approved/active) and the order flow
// (pending/confirmed/picked_up/returned/late) share one enum, with
// completed reachable from returned and late by administrative closure.
var transitions = map[string][]string{
	models.StatusPending:   {models.StatusApproved, models.StatusConfirmed, models.StatusRejected, models.StatusCancelled},
	models.StatusApproved:  {models.StatusActive, models.StatusRejected, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusActive, models.StatusPickedUp, models.StatusCancelled},
	models.StatusActive:    {models.StatusCompleted, models.StatusCancelled},
	models.StatusPickedUp:  {models.StatusReturned, models.StatusLate, models.StatusCancelled},
	models.StatusReturned:  {models.StatusCompleted},
	models.StatusLate:      {models.StatusCompleted},
	models.StatusRejected:  {},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

// committing statuses hold a real claim on ledger inventory, as opposed
// to pending (not yet holding) and the terminal/released statuses.
var committing = map[string]bool{
	models.StatusApproved:  true,
	models.StatusConfirmed: true,
	models.StatusActive:    true,
	models.StatusPickedUp:  true,
}

func canTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func isCommitting(status string) bool {
	return committing[status]
}

// allowedActor applies the role table for an edge: provider/admin own
// approval-style edges, cancellation is additionally open to the
// requester.
func allowedActor(res *models.Reservation, target string, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}

	isProvider := actor.Role == models.RoleProvider && actor.ID == res.ProviderID
	if target == models.StatusCancelled {
		return isProvider || actor.ID == res.RequesterID
	}
	return isProvider
}
