package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/alumnihub/backend/core"
)

// sendgridService delivers messages through the Sendgrid v3 mail API, one goroutine per message.
type sendgridService struct {
	conf   *core.Config
	client *sendgrid.Client
	logger core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	return &sendgridService{
		conf:   conf,
		client: sendgrid.NewSendClient(conf.SendgridAPIKey),
		logger: logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if render(svc.conf, svc.logger, msg) {
				svc.send(svc.prepare(*msg))
			}
		}(msg)
	}
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = "[" + svc.conf.AppName + "] " + msg.Subject
	p.AddTos(sgEmails(msg.To)...)
	p.AddCCs(sgEmails(msg.Cc)...)
	p.AddBCCs(sgEmails(msg.Bcc)...)

	from := svc.conf.DefaultFromEmail
	m := sgmail.NewV3Mail().
		SetFrom(sgmail.NewEmail(from.Name, from.Address)).
		AddPersonalizations(p).
		AddContent(sgmail.NewContent("text/plain", msg.TextContent)) // text/plain must come first
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc *sendgridService) send(m *sgmail.SGMailV3) {
	res, err := svc.client.Send(m)
	switch {
	case err != nil:
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	case res.StatusCode >= http.StatusBadRequest:
		svc.logger.Error(fmt.Sprintf("sending email: sendgrid responded %d", res.StatusCode), map[string]interface{}{
			"subject": m.Personalizations[0].Subject,
			"body":    res.Body,
		})
	}
}

func sgEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, len(addrs))
	for i, a := range addrs {
		emails[i] = sgmail.NewEmail(a.Name, a.Address)
	}
	return emails
}
