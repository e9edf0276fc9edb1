package billing

import (
	"github.com/qmuntal/stateless"

	"github.com/factuurlab/factuur/internal/models"
)

// Triggers for the invoice status machine.
const (
	triggerSend   = "send"
	triggerPay    = "pay"
	triggerLapse  = "lapse"
	triggerCancel = "cancel"
)

var triggerFor = map[string]string{
	models.InvoiceStatusSent:      triggerSend,
	models.InvoiceStatusPaid:      triggerPay,
	models.InvoiceStatusOverdue:   triggerLapse,
	models.InvoiceStatusCancelled: triggerCancel,
}

// newStatusMachine encodes draft -> sent -> paid, sent -> overdue and
// any non-terminal -> cancelled. Paid and cancelled have no outgoing edges.
func newStatusMachine(current string) *stateless.StateMachine {
	sm := stateless.NewStateMachine(current)
	sm.Configure(models.InvoiceStatusDraft).
		Permit(triggerSend, models.InvoiceStatusSent).
		Permit(triggerPay, models.InvoiceStatusPaid).
		Permit(triggerCancel, models.InvoiceStatusCancelled)
	sm.Configure(models.InvoiceStatusSent).
		Permit(triggerPay, models.InvoiceStatusPaid).
		Permit(triggerLapse, models.InvoiceStatusOverdue).
		Permit(triggerCancel, models.InvoiceStatusCancelled)
	sm.Configure(models.InvoiceStatusOverdue).
		Permit(triggerPay, models.InvoiceStatusPaid).
		Permit(triggerCancel, models.InvoiceStatusCancelled)
	sm.Configure(models.InvoiceStatusPaid)
	sm.Configure(models.InvoiceStatusCancelled)
	return sm
}

// CanTransition reports whether an invoice may move from one status to
// another. Staying put is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	trigger, ok := triggerFor[to]
	if !ok {
		return false
	}
	allowed, err := newStatusMachine(from).CanFire(trigger)
	return err == nil && allowed
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status string) bool {
	return status == models.InvoiceStatusPaid || status == models.InvoiceStatusCancelled
}
