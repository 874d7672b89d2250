package wireservice

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// GenericMessage is the plaintext payload carried inside OTR envelopes.
// Exactly one content field is set.
type GenericMessage struct {
	MessageID    string        `json:"message_id"`
	Text         *TextContent  `json:"text,omitempty"`
	Availability *Availability `json:"availability,omitempty"`
}

// TextContent is a plain text message.
type TextContent struct {
	Content string `json:"content"`
}

// Availability announces the sender's availability status to all team
// members.
type Availability struct {
	Type AvailabilityType `json:"type"`
}

// AvailabilityType enumerates the availability states.
type AvailabilityType string

const (
	AvailabilityNone      AvailabilityType = "none"
	AvailabilityAvailable AvailabilityType = "available"
	AvailabilityAway      AvailabilityType = "away"
	AvailabilityBusy      AvailabilityType = "busy"
)

// ParseAvailabilityType validates a user-supplied availability name.
func ParseAvailabilityType(s string) (AvailabilityType, error) {
	switch AvailabilityType(s) {
	case AvailabilityNone, AvailabilityAvailable, AvailabilityAway, AvailabilityBusy:
		return AvailabilityType(s), nil
	}
	return "", fmt.Errorf("unknown availability type %q (none, available, away, busy)", s)
}

// NewTextMessage builds a text message with a fresh message ID.
func NewTextMessage(content string) *GenericMessage {
	return &GenericMessage{
		MessageID: uuid.NewString(),
		Text:      &TextContent{Content: content},
	}
}

// NewAvailabilityMessage builds an availability update with a fresh
// message ID.
func NewAvailabilityMessage(t AvailabilityType) *GenericMessage {
	return &GenericMessage{
		MessageID:    uuid.NewString(),
		Availability: &Availability{Type: t},
	}
}

// Marshal serializes the message to its plaintext wire form.
func (m *GenericMessage) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal generic message: %w", err)
	}
	return data, nil
}

// UnmarshalGenericMessage parses a decrypted payload.
func UnmarshalGenericMessage(data []byte) (*GenericMessage, error) {
	var m GenericMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal generic message: %w", err)
	}
	return &m, nil
}
