package topics

const (
	// Límites
	LimitUpdates = "limit_updates"

	// Tickets
	TicketAdmitted  = "ticket_admitted"
	TicketCancelled = "ticket_cancelled"

	// DLQs
	TicketAdmittedDLQ = "ticket_admitted_dlq"
)
