package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendQuoteSubmittedEmail(ctx context.Context, toEmail string, details BookingDetails, rescheduled bool, originalDate string) error {
	content, err := renderEmailTemplate("quote_submitted.html", quoteSubmittedEmailData{
		bookingEmailData: bookingEmailData{
			baseEmailData: baseEmailData{
				Title:   "Booking request received",
				Heading: "Thank you for your request",
			},
			BookingDetails: details,
		},
		Rescheduled:  rescheduled,
		OriginalDate: originalDate,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteSubmitted, content)
}

func (s *SMTPSender) SendNewQuoteAlertEmail(ctx context.Context, toEmail string, details BookingDetails, clientEmail, clientPhone string, hasConflict bool) error {
	subject := fmt.Sprintf(subjectNewQuoteAlertFmt, details.EventType, details.EventDate)
	content, err := renderEmailTemplate("new_quote_alert.html", newQuoteAlertEmailData{
		bookingEmailData: bookingEmailData{
			baseEmailData: baseEmailData{
				Title:   "New quote request",
				Heading: "New quote request",
			},
			BookingDetails: details,
		},
		ClientEmail: clientEmail,
		ClientPhone: clientPhone,
		HasConflict: hasConflict,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendQuoteSentEmail(ctx context.Context, toEmail string, details BookingDetails) error {
	content, err := renderEmailTemplate("quote_sent.html", bookingEmailData{
		baseEmailData: baseEmailData{
			Title:   "Your quote is ready",
			Heading: "Your quote is ready",
		},
		BookingDetails: details,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteSent, content)
}

func (s *SMTPSender) SendQuoteAcceptedEmail(ctx context.Context, toEmail string, details BookingDetails) error {
	content, err := renderEmailTemplate("quote_accepted.html", bookingEmailData{
		baseEmailData: baseEmailData{
			Title:   "Booking confirmed",
			Heading: "Your booking is confirmed",
		},
		BookingDetails: details,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteAccepted, content)
}

func (s *SMTPSender) SendQuoteRejectedEmail(ctx context.Context, toEmail string, details BookingDetails, reason string) error {
	content, err := renderEmailTemplate("quote_rejected.html", quoteRejectedEmailData{
		bookingEmailData: bookingEmailData{
			baseEmailData: baseEmailData{
				Title:   "Booking request update",
				Heading: "About your booking request",
			},
			BookingDetails: details,
		},
		Reason: reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteRejected, content)
}

func (s *SMTPSender) SendQuoteCancelledEmail(ctx context.Context, toEmail string, details BookingDetails, reason string) error {
	content, err := renderEmailTemplate("quote_cancelled.html", quoteCancelledEmailData{
		bookingEmailData: bookingEmailData{
			baseEmailData: baseEmailData{
				Title:   "Booking cancelled",
				Heading: "Your booking has been cancelled",
			},
			BookingDetails: details,
		},
		Reason: reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteCancelled, content)
}

func (s *SMTPSender) SendQuoteRescheduledEmail(ctx context.Context, toEmail string, details BookingDetails, oldDate, oldTime string) error {
	content, err := renderEmailTemplate("quote_rescheduled.html", quoteRescheduledEmailData{
		bookingEmailData: bookingEmailData{
			baseEmailData: baseEmailData{
				Title:   "Session rescheduled",
				Heading: "Your session has been rescheduled",
			},
			BookingDetails: details,
		},
		OldDate: oldDate,
		OldTime: oldTime,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteRescheduled, content)
}
