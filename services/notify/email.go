package notifysvc

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/notification"
	"github.com/trezcool/practicum/core/user"
)

// Recipients resolves the account a notification is addressed to.
type Recipients interface {
	Find(id string) (user.User, error)
}

// EmailPublisher emails every notification to its recipient.
type EmailPublisher struct {
	recipients Recipients
	mailSvc    core.EmailService
}

var _ notification.Publisher = (*EmailPublisher)(nil)

func NewEmailPublisher(recipients Recipients, mailSvc core.EmailService) *EmailPublisher {
	return &EmailPublisher{recipients: recipients, mailSvc: mailSvc}
}

func (p *EmailPublisher) Publish(_ context.Context, n notification.Notification) error {
	usr, err := p.recipients.Find(n.UserID)
	if err != nil {
		return errors.Wrapf(err, "finding recipient %q", n.UserID)
	}
	p.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:     n.Title,
		TextContent: n.Message,
	})
	return nil
}
