// Package notification turns an accepted lead into the plain-text email sent
// to the business owner.
package notification

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/email"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/sanitize"
)

// Field limits applied when composing. They cap what reaches the inbox even
// if validation limits change.
const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxPhoneLength   = 30
	MaxMessageLength = 2000

	Tag = "new-lead"
)

// Composer builds lead notifications for a fixed sender and recipient
type Composer struct {
	from string
	to   string
	site string
}

// NewComposer creates a composer. site is the public hostname quoted in the
// subject and the first line of the body.
func NewComposer(from, to, site string) *Composer {
	return &Composer{from: from, to: to, site: site}
}

// Compose renders lead as a plain-text message. The lead is expected to be
// sanitized already; values are only truncated here.
func (c *Composer) Compose(lead *models.Lead) email.Message {
	name := sanitize.Truncate(lead.Name, MaxNameLength)
	addr := sanitize.Truncate(lead.Email, MaxEmailLength)
	phone := sanitize.Truncate(lead.Phone, MaxPhoneLength)
	message := sanitize.Truncate(lead.Message, MaxMessageLength)

	var b strings.Builder
	b.WriteString("New request from the " + c.site + " contact form\n")
	b.WriteString("\n")
	b.WriteString("Name:    " + name + "\n")
	b.WriteString("Email:   " + addr + "\n")
	b.WriteString("Phone:   " + phone + "\n")
	b.WriteString("\n")
	b.WriteString("Message:\n")
	b.WriteString(message + "\n")
	if lead.ID != uuid.Nil {
		b.WriteString("\n")
		b.WriteString("Reference: " + lead.ID.String() + "\n")
	}

	return email.Message{
		From:    c.from,
		To:      c.to,
		ReplyTo: addr,
		Subject: "New lead from " + c.site + ": " + name,
		Text:    b.String(),
		Tag:     Tag,
	}
}
