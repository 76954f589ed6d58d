package core

import (
	"bytes"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"log"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/alumnihub/backend/fs"
)

const templatesDir = "assets/templates/email"

var (
	templates tmplCache
	tmplInit  sync.Once
)

type (
	executor interface {
		Execute(w io.Writer, data interface{}) error
	}
	tmplCacheEntry struct {
		text executor
		html executor
	}
	tmplCache map[string]tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// Render fills TextContent and HTMLContent from BodyStr or the named templates.
// A template missing for one content type leaves that content empty.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	tmplInit.Do(func() { templates = parseTemplates(appfs.FS, conf.Debug || conf.TestMode) })

	data := ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL, Data: m.TemplateData}
	entry := templates[m.TemplateName]
	targets := []struct {
		tmpl executor
		ext  string
		dst  *string
	}{
		{entry.text, ".txt", &m.TextContent},
		{entry.html, ".gohtml", &m.HTMLContent},
	}
	for _, t := range targets {
		if t.tmpl == nil || (t.ext == ".txt" && m.BodyStr != "") {
			continue
		}
		var buf bytes.Buffer
		if err := t.tmpl.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "executing %s%s", m.TemplateName, t.ext)
		}
		*t.dst = buf.String()
	}
	return nil
}

// parseTemplates parses every "<name>.txt" and "<name>.gohtml" on top of its "_base" layout.
// Unparsable files are logged and skipped.
func parseTemplates(fsys fs.FS, strict bool) tmplCache {
	cache := make(tmplCache)

	fps, err := fs.Glob(fsys, path.Join(templatesDir, "*"))
	if err != nil {
		log.Print(errors.Wrap(err, "core.parseTemplates"))
		return cache
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		base := path.Join(templatesDir, "_base"+ext)
		name := strings.TrimSuffix(fname, ext)
		entry := cache[name]

		switch ext {
		case ".txt":
			tmpl, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				log.Print(errors.Wrapf(err, "core.parseTemplates(%s)", fname))
				continue
			}
			if strict {
				tmpl.Option("missingkey=error")
			}
			entry.text = tmpl
		case ".gohtml":
			tmpl, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				log.Print(errors.Wrapf(err, "core.parseTemplates(%s)", fname))
				continue
			}
			if strict {
				tmpl.Option("missingkey=error")
			}
			entry.html = tmpl
		default:
			continue
		}
		cache[name] = entry
	}
	return cache
}
