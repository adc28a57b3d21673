package events

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	serrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/search"
)

// ZapSink returns a hook that logs every search event as a structured
// line. Expansions log at debug level so exhaustive runs do not flood
// the output; prunes and solutions log at info level.
func ZapSink(logger *zap.Logger) search.Hook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(e search.Event) {
		fields := []zap.Field{
			zap.String("kind", string(e.Kind)),
			zap.Int("depth", e.Depth),
			zap.String("state", renderState(e.State)),
			zap.Int64("nodesExpanded", e.Stats.NodesExpanded),
			zap.Int64("solutionsFound", e.Stats.SolutionsFound),
		}
		switch e.Kind {
		case search.EventExpand:
			logger.Debug("Search event", fields...)
		default:
			logger.Info("Search event", fields...)
		}
	}
}

// PublishConn is the slice of the NATS connection API the publisher
// needs. *nats.Conn satisfies it.
type PublishConn interface {
	Publish(subject string, data []byte) error
}

// wireEvent is the JSON shape published for each search event.
type wireEvent struct {
	Kind  string       `json:"kind"`
	Depth int          `json:"depth"`
	State string       `json:"state"`
	Stats search.Stats `json:"stats"`
}

// Publisher forwards search events to a NATS subject as JSON messages.
// Publishing is fire-and-forget: a failed publish is logged and
// dropped, never allowed to fail the search.
type Publisher struct {
	conn    PublishConn
	subject string
	logger  *zap.Logger
}

// NewPublisher creates a publisher for the given subject.
func NewPublisher(conn PublishConn, subject string, logger *zap.Logger) (*Publisher, error) {
	if conn == nil {
		return nil, serrors.ErrNotConnected
	}
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Hook returns a search hook that publishes every event.
func (p *Publisher) Hook() search.Hook {
	return func(e search.Event) {
		payload, err := json.Marshal(wireEvent{
			Kind:  string(e.Kind),
			Depth: e.Depth,
			State: renderState(e.State),
			Stats: e.Stats,
		})
		if err != nil {
			p.logger.Error("Failed to encode search event", zap.Error(err))
			return
		}
		if err := p.conn.Publish(p.subject, payload); err != nil {
			p.logger.Error("Failed to publish search event",
				zap.String("subject", p.subject),
				zap.Error(err))
		}
	}
}

// Fanout combines several hooks into one that invokes them in order.
func Fanout(hooks ...search.Hook) search.Hook {
	return func(e search.Event) {
		for _, h := range hooks {
			if h != nil {
				h(e)
			}
		}
	}
}

func renderState(s search.State) string {
	if s == nil {
		return ""
	}
	if str, ok := s.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%v", s)
}
