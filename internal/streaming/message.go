package streaming

import (
	"encoding/json"
	"errors"
	"time"

	"txledger/internal/domain"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeTrigger MessageType = "trigger"
	MessageTypeOutcome MessageType = "outcome"
)

// Message is the envelope on both the trigger and the outcome topic.
// Trigger fields are Text, CallerID and Channel; outcome fields are
// TriggerID and the rest.
type Message struct {
	Type     MessageType `json:"type"`
	ID       string      `json:"id"`
	TraceID  string      `json:"trace_id,omitempty"`
	SentAt   time.Time   `json:"sent_at"`
	Text     string      `json:"text,omitempty"`
	CallerID string      `json:"caller_id,omitempty"`
	Channel  string      `json:"channel,omitempty"`

	TriggerID  string                  `json:"trigger_id,omitempty"`
	Kind       string                  `json:"kind,omitempty"`
	Command    string                  `json:"command,omitempty"`
	Hash       string                  `json:"hash,omitempty"`
	Reply      string                  `json:"reply,omitempty"`
	Detail     string                  `json:"detail,omitempty"`
	Record     *domain.CanonicalRecord `json:"record,omitempty"`
	TotalCount int                     `json:"total_count,omitempty"`
}

func NewTrigger(text, callerID, channel string) Message {
	return Message{
		Type:     MessageTypeTrigger,
		ID:       uuid.NewString(),
		SentAt:   time.Now().UTC(),
		Text:     text,
		CallerID: callerID,
		Channel:  channel,
	}
}

// NewOutcome answers trigger; the caller fills in the result fields.
func NewOutcome(trigger Message) Message {
	return Message{
		Type:      MessageTypeOutcome,
		ID:        uuid.NewString(),
		TraceID:   trigger.TraceID,
		SentAt:    time.Now().UTC(),
		CallerID:  trigger.CallerID,
		Channel:   trigger.Channel,
		TriggerID: trigger.ID,
	}
}

func Encode(msg Message) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if err := validate(msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func validate(msg Message) error {
	if msg.ID == "" {
		return errors.New("message id is required")
	}
	switch msg.Type {
	case MessageTypeTrigger:
		if msg.Text == "" {
			return errors.New("trigger text is required")
		}
	case MessageTypeOutcome:
		if msg.TriggerID == "" {
			return errors.New("outcome trigger_id is required")
		}
		if msg.Kind == "" {
			return errors.New("outcome kind is required")
		}
	case "":
		return errors.New("message type is required")
	default:
		return errors.New("unknown message type: " + string(msg.Type))
	}
	return nil
}
