package mail

import (
	"context"
	"fmt"
	"strings"
)

// Address is a display name plus email address.
type Address struct {
	Name    string
	Address string
}

// Message is a single outbound email.
type Message struct {
	To      []Address
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("mail %q has no recipients", m.Subject)
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return fmt.Errorf("mail %q has no content", m.Subject)
	}
	return nil
}

// VerificationMessage builds the account verification mail sent after signup
// or when an admin creates an unverified account.
func VerificationMessage(to Address, link string) Message {
	greeting := "Hi"
	if to.Name != "" {
		greeting = "Hi " + to.Name
	}
	return Message{
		To:      []Address{to},
		Subject: "Verify your Story Ninja account",
		Text:    fmt.Sprintf("%s,\n\nConfirm your email address by opening the link below:\n\n%s\n\nIf you did not request this, ignore this email.\n", greeting, link),
		HTML: fmt.Sprintf(`<p>%s,</p><p>Confirm your email address by opening the link below:</p><p><a href="%s">Verify my account</a></p><p>If you did not request this, ignore this email.</p>`,
			greeting, link),
	}
}
