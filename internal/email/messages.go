package email

import (
	"fmt"
	"html"

	"eventsys/internal/model"
)

// wrap applies the shared outer layout to a message body.
func wrap(content string) string {
	return fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`+
			`<div style="background-color: #ffffff; padding: 20px; border-radius: 8px;">%s</div>`+
			`<div style="text-align: center; margin-top: 20px; color: #888;">EventSys</div>`+
			`</div>`,
		content,
	)
}

// VerificationEmail builds the account verification message. The link dies
// after 24 hours.
func VerificationEmail(baseURL, token string) (subject, htmlBody string) {
	link := fmt.Sprintf("%s/auth/verify?token=%s", baseURL, token)
	body := fmt.Sprintf(
		`<h1>Welcome to EventSys!</h1>`+
			`<p>Please click this link to verify your account:</p>`+
			`<p><a href="%s">Verify Account</a></p>`+
			`<p>This link expires in 24 hours.</p>`,
		link,
	)
	return "Verify your EventSys account", wrap(body)
}

// PasswordResetEmail builds the password reset message. The link dies after
// 1 hour.
func PasswordResetEmail(baseURL, token string) (subject, htmlBody string) {
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", baseURL, token)
	body := fmt.Sprintf(
		`<h1>Password Reset</h1>`+
			`<p>Please click this link to reset your password:</p>`+
			`<p><a href="%s">Reset Password</a></p>`+
			`<p>This link expires in 1 hour. If you did not request a reset, ignore this email.</p>`,
		link,
	)
	return "Reset your EventSys password", wrap(body)
}

// RSVPEmail builds the note sent to an event owner when someone joins.
func RSVPEmail(attendeeName string, ev *model.Event) (subject, htmlBody string) {
	subject = fmt.Sprintf("New RSVP for your event: %s", ev.Title)
	body := fmt.Sprintf(
		`<h1>New RSVP for your event</h1>`+
			`<p><strong>%s</strong> has RSVP'd to your event "%s".</p>`+
			`<p>Event details:</p>`+
			`<ul><li>Date: %s</li><li>Location: %s</li></ul>`+
			`<p>You can view the full attendee list on the event page.</p>`,
		html.EscapeString(attendeeName),
		html.EscapeString(ev.Title),
		ev.Date.Format("January 2, 2006"),
		html.EscapeString(ev.Location),
	)
	return subject, wrap(body)
}

// CancellationEmail builds the note sent to each attendee of a cancelled event.
func CancellationEmail(ev *model.Event) (subject, htmlBody string) {
	subject = fmt.Sprintf("Event cancelled: %s", ev.Title)
	body := fmt.Sprintf(
		`<h1>Event cancelled</h1>`+
			`<p>The event "%s" scheduled for %s has been cancelled by the organizer.</p>`,
		html.EscapeString(ev.Title),
		ev.Date.Format("January 2, 2006"),
	)
	return subject, wrap(body)
}
