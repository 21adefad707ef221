// Package notify renders and delivers the three member-facing emails:
// account verification, magic login link and RSVP confirmation.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Email categories, also used as queue job email types.
const (
	CategoryVerification = "verification"
	CategoryLoginLink    = "login_link"
	CategoryRSVP         = "rsvp_confirmation"
)

// Address is a named mailbox.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is a rendered email ready for a transport.
type Message struct {
	From     Address `json:"from"`
	To       Address `json:"to"`
	Subject  string  `json:"subject"`
	Text     string  `json:"text"`
	HTML     string  `json:"html"`
	Category string  `json:"category"`
}

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError is a transport failure for one recipient.
type DeliveryError struct {
	Category  string
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s email to %s: %v", e.Category, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryError reports whether err is a DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// VerificationEmail is the payload of the account activation email.
type VerificationEmail struct {
	To         string
	Name       string
	MemberCode string
	Link       string
}

// LoginLinkEmail is the payload of the magic login email.
type LoginLinkEmail struct {
	To        string
	Name      string
	Link      string
	ExpiresIn time.Duration
}

// RSVPConfirmationEmail is the payload of the RSVP confirmation.
type RSVPConfirmationEmail struct {
	To           string
	Name         string
	EventTitle   string
	StartsAt     time.Time
	Platform     string
	Location     string
	CalendarLink string
}

// Sender renders messages and hands them to a transport.
type Sender struct {
	transport Transport
	from      Address
	logger    *zap.Logger
	sent      func(category string, ok bool)
}

// NewSender creates a sender. A nil transport logs messages instead of sending them.
func NewSender(transport Transport, from Address, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if transport == nil {
		transport = NewLogTransport(logger)
	}
	return &Sender{transport: transport, from: from, logger: logger, sent: func(string, bool) {}}
}

// OnSent registers a hook called after every delivery attempt.
func (s *Sender) OnSent(fn func(category string, ok bool)) {
	if fn != nil {
		s.sent = fn
	}
}

// SendVerification sends the account verification email.
func (s *Sender) SendVerification(ctx context.Context, p VerificationEmail) error {
	msg, err := render(verificationTemplates, p)
	if err != nil {
		return err
	}
	msg.To = Address{Email: p.To, Name: p.Name}
	msg.Category = CategoryVerification
	return s.deliver(ctx, msg)
}

// SendLoginLink sends the magic login email.
func (s *Sender) SendLoginLink(ctx context.Context, p LoginLinkEmail) error {
	msg, err := render(loginTemplates, loginView{LoginLinkEmail: p, Minutes: int(p.ExpiresIn.Minutes())})
	if err != nil {
		return err
	}
	msg.To = Address{Email: p.To, Name: p.Name}
	msg.Category = CategoryLoginLink
	return s.deliver(ctx, msg)
}

// SendRSVPConfirmation sends the event registration confirmation.
func (s *Sender) SendRSVPConfirmation(ctx context.Context, p RSVPConfirmationEmail) error {
	view := rsvpView{RSVPConfirmationEmail: p, When: p.StartsAt.UTC().Format("Monday, January 2, 2006 at 15:04 UTC")}
	msg, err := render(rsvpTemplates, view)
	if err != nil {
		return err
	}
	msg.To = Address{Email: p.To, Name: p.Name}
	msg.Category = CategoryRSVP
	return s.deliver(ctx, msg)
}

func (s *Sender) deliver(ctx context.Context, msg Message) error {
	msg.From = s.from
	if err := s.transport.Send(ctx, msg); err != nil {
		s.sent(msg.Category, false)
		s.logger.Error("email delivery failed",
			zap.String("category", msg.Category),
			zap.String("recipient", msg.To.Email),
			zap.Error(err),
		)
		return &DeliveryError{Category: msg.Category, Recipient: msg.To.Email, Err: err}
	}
	s.sent(msg.Category, true)
	return nil
}
