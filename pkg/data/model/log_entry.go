package model

import (
	"encoding/json"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/pkg/errors"
)

// Publisher sends an archived log entry to a message topic without waiting
// for nsqd to acknowledge it. *nsq.Producer satisfies it.
type Publisher interface {
	PublishAsync(topic string, body []byte, doneChan chan *nsq.ProducerTransaction, args ...interface{}) error
}

type LogEntry struct {
	Topic     string    `json:"topic,omitempty"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Component string    `json:"component,omitempty"`
	Method    string    `json:"method,omitempty"`
	Source    string    `json:"source,omitempty"`
	TookMs    int64     `json:"tookMs"`
	Time      time.Time `json:"time"`
}

func (e LogEntry) String() string {
	bytes, err := e.Marshal()
	if err != nil {
		return e.Message
	}
	return string(bytes)
}

func (e LogEntry) Marshal() ([]byte, error) {
	if len(e.Severity) == 0 {
		e.Severity = "INFO"
	}
	return json.Marshal(e)
}

// Archive publishes entry on its own topic. A nil publisher is a no-op.
func Archive(publisher Publisher, entry LogEntry) error {
	if publisher == nil {
		return nil
	}
	bytes, err := entry.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal log entry")
	}
	return errors.Wrapf(publisher.PublishAsync(entry.Topic, bytes, nil), "publish topic=%s", entry.Topic)
}
