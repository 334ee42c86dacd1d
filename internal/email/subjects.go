package email

const (
	subjectQuoteSubmitted   = "We received your booking request"
	subjectNewQuoteAlertFmt = "New quote request: %s on %s"
	subjectQuoteSent        = "Your quote is ready"
	subjectQuoteAccepted    = "Your booking is confirmed"
	subjectQuoteRejected    = "Update on your booking request"
	subjectQuoteCancelled   = "Your booking has been cancelled"
	subjectQuoteRescheduled = "Your session has been rescheduled"
)
