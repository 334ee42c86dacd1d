package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type bookingEmailData struct {
	baseEmailData
	BookingDetails
}

type quoteSubmittedEmailData struct {
	bookingEmailData
	Rescheduled  bool
	OriginalDate string
}

type newQuoteAlertEmailData struct {
	bookingEmailData
	ClientEmail string
	ClientPhone string
	HasConflict bool
}

type quoteRejectedEmailData struct {
	bookingEmailData
	Reason string
}

type quoteCancelledEmailData struct {
	bookingEmailData
	Reason string
}

type quoteRescheduledEmailData struct {
	bookingEmailData
	OldDate string
	OldTime string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/_booking_details.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
