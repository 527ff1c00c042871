// Package contact stores messages sent through the storefront contact form.
package contact

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/notify"
	"github.com/xenking/sarit-store/internal/domain/validate"
	"github.com/xenking/sarit-store/pkg/pagination"
)

const (
	minNameLength    = 2
	minCommentLength = 5
)

var phoneRe = regexp.MustCompile(`^\+?\d{7,15}$`)

// Message is a submitted contact form.
type Message struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is the form as submitted.
type Input struct {
	Name    string
	Email   string
	Phone   string
	Comment string
}

// ListQuery selects a page of messages. Search matches name, email, phone
// or comment as a case-insensitive substring.
type ListQuery struct {
	Search string
	Page   pagination.Params
}

// Repository persists messages.
type Repository interface {
	Insert(ctx context.Context, m *Message) error
	List(ctx context.Context, q ListQuery) ([]Message, int, error)
}

// Notifier schedules a notification for asynchronous delivery.
type Notifier interface {
	Enqueue(ctx context.Context, msg notify.Message) bool
}

// Inbox accepts and lists contact messages.
type Inbox struct {
	repo     Repository
	notifier Notifier
	// forwardTo receives a copy of every message. Empty disables forwarding.
	forwardTo string
	now       func() time.Time
}

// NewInbox creates an Inbox backed by repo. When forwardTo is set every
// accepted message is also sent there through notifier.
func NewInbox(repo Repository, notifier Notifier, forwardTo string) *Inbox {
	return &Inbox{repo: repo, notifier: notifier, forwardTo: forwardTo, now: time.Now}
}

func (in Input) normalize() Message {
	return Message{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   strings.TrimSpace(in.Phone),
		Comment: strings.TrimSpace(in.Comment),
	}
}

func (m *Message) validate() error {
	var v validate.Error
	if utf8.RuneCountInString(m.Name) < minNameLength {
		v.Add("name", "name must be at least 2 characters")
	}
	if !validate.IsEmail(m.Email) {
		v.Add("email", "a valid email is required")
	}
	if m.Phone != "" && !phoneRe.MatchString(m.Phone) {
		v.Add("phone", "phone must be 7 to 15 digits with an optional leading +")
	}
	if utf8.RuneCountInString(m.Comment) < minCommentLength {
		v.Add("comment", "comment must be at least 5 characters")
	}
	return v.Err()
}

// Submit validates and stores a contact form.
func (b *Inbox) Submit(ctx context.Context, in Input) (*Message, error) {
	m := in.normalize()
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.CreatedAt = b.now()
	if err := b.repo.Insert(ctx, &m); err != nil {
		return nil, errors.Wrap(err, "insert contact message")
	}
	if b.notifier != nil && b.forwardTo != "" {
		if !b.notifier.Enqueue(ctx, forwardMessage(&m, b.forwardTo)) {
			zctx.From(ctx).Warn("Contact notification not queued", zap.String("contact_id", m.ID))
		}
	}
	return &m, nil
}

func forwardMessage(m *Message, to string) notify.Message {
	phone := m.Phone
	if phone == "" {
		phone = "-"
	}
	return notify.Message{
		Kind:    notify.KindContactMessage,
		To:      to,
		Subject: "Contact form: " + m.Name,
		Body:    fmt.Sprintf("From: %s <%s>\nPhone: %s\n\n%s\n", m.Name, m.Email, phone, m.Comment),
		Fields: map[string]string{
			"replyTo": m.Email,
		},
	}
}

// List returns a page of messages, newest first.
func (b *Inbox) List(ctx context.Context, q ListQuery) ([]Message, pagination.Meta, error) {
	q.Search = strings.TrimSpace(q.Search)
	items, total, err := b.repo.List(ctx, q)
	if err != nil {
		return nil, pagination.Meta{}, errors.Wrap(err, "list contact messages")
	}
	return items, q.Page.MetaFor(total), nil
}
