package emailsvc

import (
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumnihub/backend/core"
	testutil "github.com/alumnihub/backend/tests"
)

func Test_sendgridService_prepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSendgridService(conf, testutil.NewLogger(conf))

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Grace Mbuyi", Address: "grace@test.cd"}},
		Cc:          []mail.Address{{Address: "cc@test.cd"}},
		Bcc:         []mail.Address{{Address: "bcc@test.cd"}},
		Subject:     "Your verification code",
		TextContent: "code: 123456",
		HTMLContent: "<p>code: 123456</p>",
	})

	assert.Equal(t, conf.DefaultFromEmail.Address, m.From.Address)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "["+conf.AppName+"] Your verification code", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "Grace Mbuyi", p.To[0].Name)
	assert.Equal(t, "grace@test.cd", p.To[0].Address)
	assert.Len(t, p.CC, 1)
	assert.Len(t, p.BCC, 1)

	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)

	// text only
	m = svc.prepare(core.EmailMessage{To: []mail.Address{{Address: "grace@test.cd"}}, TextContent: "hi"})
	assert.Len(t, m.Content, 1)
}

func Test_consoleServiceMock(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewLogger(conf))
	ResetSentMessages()
	defer ResetSentMessages()

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Grace Mbuyi", Address: "grace@test.cd"}},
			Subject:      "Welcome",
			TemplateName: "welcome",
			TemplateData: map[string]string{"Name": "Grace Mbuyi"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Address: "patrice@test.cd"}}, Subject: "plain", BodyStr: "hello"},
	)

	require.Len(t, SentMessages, 2)
	welcome := SentMessages[0]
	assert.Contains(t, welcome.TextContent, "Grace Mbuyi")
	assert.Contains(t, welcome.TextContent, conf.AppName)
	assert.NotEmpty(t, welcome.HTMLContent)

	last, ok := LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "hello", last.TextContent)
	assert.Empty(t, last.HTMLContent)
}

func Test_formatMIME(t *testing.T) {
	from := mail.Address{Name: "Alumni Hub", Address: "noreply@test.cd"}
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	out, err := formatMIME(from, "[Alumni Hub] Welcome", core.EmailMessage{
		To:          []mail.Address{{Name: "Grace Mbuyi", Address: "grace@test.cd"}, {Address: "patrice@test.cd"}},
		TextContent: "hello",
		HTMLContent: "<p>hello</p>",
	}, date)
	require.NoError(t, err)

	assert.Contains(t, out, "From: \"Alumni Hub\" <noreply@test.cd>\r\n")
	assert.Contains(t, out, "To: \"Grace Mbuyi\" <grace@test.cd>, <patrice@test.cd>\r\n")
	assert.Contains(t, out, "Subject: [Alumni Hub] Welcome\r\n")
	assert.Contains(t, out, "Date: Fri, 01 Mar 2024 10:00:00 +0000\r\n")
	assert.NotContains(t, out, "Cc:")
	assert.NotContains(t, out, "Bcc:")
	assert.Contains(t, out, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, out, "Content-Type: text/html; charset=utf-8")
	assert.True(t, strings.Index(out, "hello\r\n") < strings.Index(out, "<p>hello</p>"))

	out, err = formatMIME(from, "plain", core.EmailMessage{To: []mail.Address{{Address: "grace@test.cd"}}, TextContent: "hi"}, date)
	require.NoError(t, err)
	assert.NotContains(t, out, "text/html")
}
