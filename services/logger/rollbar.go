package logsvc

import (
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

// RollbarLogger writes to a std logger and mirrors every entry to Rollbar.
// An alumni.Alumni among the args is reported as the Rollbar person instead of
// being sent as extra data.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

// Close waits for queued rollbar items to be sent.
func (l *RollbarLogger) Close() { rollbar.Close() }

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.report(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.report(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.ERR, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}

func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	person, extras := splitPerson(args)
	if person != nil {
		rollbar.SetPerson(person.ID, person.FullName, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, append([]interface{}{msg}, extras...)...)

	l.std.Printf("[%s] %s", strings.ToUpper(level), msg)
	for _, extra := range extras {
		l.std.Printf("%+v", extra)
	}
}

// splitPerson pulls the first alumni.Alumni out of args; later ones are dropped.
func splitPerson(args []interface{}) (*alumni.Alumni, []interface{}) {
	var person *alumni.Alumni
	extras := make([]interface{}, 0, len(args))
	for _, arg := range args {
		a, ok := arg.(alumni.Alumni)
		if !ok {
			extras = append(extras, arg)
			continue
		}
		if person == nil {
			person = &a
		}
	}
	return person, extras
}
