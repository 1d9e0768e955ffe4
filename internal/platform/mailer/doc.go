// Package mailer delivers deadline alerts as multipart email.
//
// Messages are composed with github.com/emersion/go-message and sent over
// SMTP with STARTTLS when the server offers it. LogNotifier is a drop-in
// replacement for environments without a mail relay.
package mailer
