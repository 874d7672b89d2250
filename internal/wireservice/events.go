package wireservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ffflorian/wire-cli/internal/cryptobox"
)

// notification is one envelope from the /await WebSocket stream. Each
// notification bundles one or more backend events.
type notification struct {
	ID      string  `json:"id"`
	Payload []event `json:"payload"`
}

// event is a single backend event inside a notification.
type event struct {
	Type         string     `json:"type"`
	Conversation string     `json:"conversation"`
	From         string     `json:"from"`
	Time         string     `json:"time"`
	Data         *eventData `json:"data"`
}

// eventData carries the OTR payload of a conversation.otr-message-add event.
type eventData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// PreKeySource provides published prekeys for incoming-message decryption
// and retires one-time prekeys after use. Implemented by the local store.
type PreKeySource interface {
	cryptobox.PreKeyStore
	RemovePreKey(id uint16) error
	PreKeyCount() (int, error)
}

// lowPreKeyThreshold is the remaining-prekey count below which a warning is
// logged. Refilling needs a new client registration for now.
const lowPreKeyThreshold = 10

// Envelope is a decrypted incoming message as delivered to an event handler.
type Envelope struct {
	Conversation string
	From         string
	SenderClient string
	Time         string
	Message      *GenericMessage
}

// EventHandler receives decrypted incoming messages. Events that cannot be
// decrypted are logged and skipped, they do not reach the handler.
type EventHandler func(*Envelope)

// Listen connects to the notification WebSocket and dispatches decrypted
// messages to handler until ctx is cancelled or the connection fails.
func (s *Service) Listen(ctx context.Context, store PreKeySource, handler EventHandler) error {
	if s.clientID == "" {
		return fmt.Errorf("listen: no client registered")
	}

	url := fmt.Sprintf("%s/await?access_token=%s&client=%s", s.wsURL, s.creds.AccessToken, s.clientID)
	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {s.creds.TokenType + " " + s.creds.AccessToken}},
	})
	if err != nil {
		return fmt.Errorf("listen: dial: %w", err)
	}
	defer ws.CloseNow()

	logf(s.logger, "listening for notifications as client %s", s.clientID)

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("listen: read: %w", err)
		}

		var n notification
		if err := json.Unmarshal(data, &n); err != nil {
			logf(s.logger, "listen: skipping malformed notification: %v", err)
			continue
		}
		for i := range n.Payload {
			s.handleEvent(store, &n.Payload[i], handler)
		}
	}
}

// handleEvent decrypts and dispatches a single event. Only OTR message
// events addressed to our client are handled. The one-time prekey the
// envelope consumed is retired afterwards; the last-resort key survives.
func (s *Service) handleEvent(store PreKeySource, ev *event, handler EventHandler) {
	if ev.Type != "conversation.otr-message-add" || ev.Data == nil {
		return
	}
	if ev.Data.Recipient != s.clientID {
		return
	}

	envelope, err := base64.StdEncoding.DecodeString(ev.Data.Text)
	if err != nil {
		logf(s.logger, "listen: undecodable payload from %s/%s: %v", ev.From, ev.Data.Sender, err)
		return
	}

	plaintext, usedPreKeyID, err := cryptobox.DecryptPreKeyMessage(store, envelope)
	if err != nil {
		logf(s.logger, "listen: cannot decrypt message from %s/%s: %v", ev.From, ev.Data.Sender, err)
		return
	}

	if err := store.RemovePreKey(usedPreKeyID); err != nil {
		logf(s.logger, "listen: retire prekey %d: %v", usedPreKeyID, err)
	} else if n, err := store.PreKeyCount(); err == nil && n < lowPreKeyThreshold {
		logf(s.logger, "listen: only %d prekeys left, register a fresh client soon", n)
	}

	msg, err := UnmarshalGenericMessage(plaintext)
	if err != nil {
		logf(s.logger, "listen: malformed message from %s/%s: %v", ev.From, ev.Data.Sender, err)
		return
	}

	handler(&Envelope{
		Conversation: ev.Conversation,
		From:         ev.From,
		SenderClient: ev.Data.Sender,
		Time:         ev.Time,
		Message:      msg,
	})
}
