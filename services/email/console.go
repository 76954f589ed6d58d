package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
)

// SentMessages records every message a console service delivered.
var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

func ResetSentMessages() {
	mu.Lock()
	defer mu.Unlock()
	SentMessages = make([]core.EmailMessage, 0)
}

func LastSentMessage() (core.EmailMessage, bool) {
	mu.Lock()
	defer mu.Unlock()
	if len(SentMessages) == 0 {
		return core.EmailMessage{}, false
	}
	return SentMessages[len(SentMessages)-1], true
}

func record(msg core.EmailMessage) {
	mu.Lock()
	SentMessages = append(SentMessages, msg)
	mu.Unlock()
}

// render fills msg's contents and reports whether it is worth delivering.
func render(conf *core.Config, logger core.Logger, msg *core.EmailMessage) bool {
	if err := msg.Render(conf); err != nil {
		logger.Error(fmt.Sprintf("rendering email %q: %v", msg.Subject, err), errors.Wrap(err, "rendering email"))
		return false
	}
	return msg.HasRecipients() && msg.HasContent()
}

// consoleService writes messages as MIME text instead of sending them.
type consoleService struct {
	conf        *core.Config
	logger      core.Logger
	out         io.Writer // nil discards
	synchronous bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{conf: conf, logger: logger, out: os.Stdout}
}

// NewConsoleServiceMock returns a silent console service that delivers in the caller's goroutine.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{conf: conf, logger: logger, synchronous: true}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.synchronous {
			svc.deliver(msg)
		} else {
			go svc.deliver(msg)
		}
	}
}

func (svc *consoleService) deliver(msg *core.EmailMessage) {
	if !render(svc.conf, svc.logger, msg) {
		return
	}
	if svc.out != nil {
		subject := "[" + svc.conf.AppName + "] " + msg.Subject
		text, err := formatMIME(svc.conf.DefaultFromEmail, subject, *msg, time.Now())
		if err != nil {
			svc.logger.Error(fmt.Sprintf("formatting email: %v", err), err)
			return
		}
		_, _ = io.WriteString(svc.out, text+"\n")
	}
	record(*msg)
}

// formatMIME lays msg out as a multipart/alternative message.
func formatMIME(from mail.Address, subject string, msg core.EmailMessage, date time.Time) (string, error) {
	var body strings.Builder
	parts := multipart.NewWriter(&body)

	headers := [][2]string{
		{"From", from.String()},
		{"To", joinAddresses(msg.To)},
		{"Cc", joinAddresses(msg.Cc)},
		{"Bcc", joinAddresses(msg.Bcc)},
		{"Subject", subject},
		{"Date", date.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + parts.Boundary()},
	}
	for _, h := range headers {
		if h[1] != "" {
			fmt.Fprintf(&body, "%s: %s\r\n", h[0], h[1])
		}
	}
	body.WriteString("\r\n")

	contents := []struct{ mime, content string }{
		{"text/plain", msg.TextContent},
		{"text/html", msg.HTMLContent},
	}
	for _, c := range contents {
		if c.content == "" {
			continue
		}
		w, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {c.mime + "; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", c.mime)
		}
		fmt.Fprintf(w, "%s\r\n", c.content)
	}
	if err := parts.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	list := make([]string, len(addrs))
	for i, a := range addrs {
		list[i] = a.String()
	}
	return strings.Join(list, ", ")
}
