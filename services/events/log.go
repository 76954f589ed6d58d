package eventsvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alumnihub/backend/core"
)

type logPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*logPublisher)(nil)

// NewLogPublisher returns a publisher that only logs events, for when no broker is configured.
func NewLogPublisher(logger core.Logger) core.EventPublisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, events ...core.Event) error {
	for _, evt := range events {
		data, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		p.logger.Info(fmt.Sprintf("event %s: %s", evt.Type, data))
	}
	return nil
}

func (p *logPublisher) Close() error { return nil }
