package wireservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// encryptionFailedPayload is sent in place of a ciphertext when a device's
// encryption failed locally. The receiving client cannot decrypt it and
// discards the message for that device only.
var encryptionFailedPayload = []byte("💣")

// BroadcastMessage is one OTR broadcast: ciphertext per recipient device,
// plus the full target-user list the backend checks coverage against.
type BroadcastMessage struct {
	Sender        string
	Recipients    Recipients
	ReportMissing []string
}

// MismatchError is the backend's 412 rejection of a broadcast: the submitted
// recipient set does not cover the actual device set.
type MismatchError struct {
	Missing UserClients `json:"missing"`
	Deleted UserClients `json:"deleted"`
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("client mismatch: %d users with missing clients, %d with deleted clients",
		len(e.Missing), len(e.Deleted))
}

// PostBroadcastMessage posts one OTR broadcast. A 2xx response yields the
// backend's per-client acknowledgement (normally empty). A 412 yields a
// *MismatchError. Anything else is a *BackendError.
func (s *Service) PostBroadcastMessage(ctx context.Context, msg *BroadcastMessage) (*ClientMismatch, error) {
	body, status, err := s.transport.PostJSON(ctx, "/broadcast/otr/messages", encodeOTRMessage(msg), &s.creds)
	if err != nil {
		return nil, fmt.Errorf("post broadcast: %w", err)
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		var ack ClientMismatch
		if len(body) > 0 {
			if err := json.Unmarshal(body, &ack); err != nil {
				return nil, fmt.Errorf("post broadcast: unmarshal acknowledgement: %w", err)
			}
		}
		return &ack, nil
	case http.StatusPreconditionFailed:
		var mismatch MismatchError
		if err := json.Unmarshal(body, &mismatch); err != nil {
			return nil, fmt.Errorf("post broadcast: status 412: %s", body)
		}
		return nil, &mismatch
	default:
		return nil, backendError(status, body)
	}
}

// encodeOTRMessage converts a BroadcastMessage to its wire shape: ciphertext
// base64-encoded, failed encryptions replaced by the sentinel payload.
func encodeOTRMessage(msg *BroadcastMessage) *otrMessage {
	recipients := make(map[string]map[string]string, len(msg.Recipients))
	for userID, clients := range msg.Recipients {
		encoded := make(map[string]string, len(clients))
		for clientID, ct := range clients {
			data := ct.Data
			if ct.Failed {
				data = encryptionFailedPayload
			}
			encoded[clientID] = base64.StdEncoding.EncodeToString(data)
		}
		recipients[userID] = encoded
	}
	return &otrMessage{
		Sender:        msg.Sender,
		Recipients:    recipients,
		ReportMissing: msg.ReportMissing,
	}
}

// repairBroadcast mutates msg according to a mismatch report: deleted devices
// are pruned, missing devices get freshly fetched prekeys and fresh
// ciphertext. A report with neither deleted nor missing entries is malformed
// and re-raised unchanged.
func (s *Service) repairBroadcast(ctx context.Context, mismatch *MismatchError, msg *BroadcastMessage, plaintext []byte) error {
	if len(mismatch.Deleted) == 0 && len(mismatch.Missing) == 0 {
		return mismatch
	}

	for userID, clientIDs := range mismatch.Deleted {
		clients, ok := msg.Recipients[userID]
		if !ok {
			continue
		}
		for _, clientID := range clientIDs {
			delete(clients, clientID)
		}
		if len(clients) == 0 {
			delete(msg.Recipients, userID)
		}
	}

	if len(mismatch.Missing) == 0 {
		return nil
	}

	bundles, err := s.ResolvePreKeys(ctx, mismatch.Missing)
	if err != nil {
		return fmt.Errorf("repair broadcast: %w", err)
	}

	fresh := s.EncryptForDevices(plaintext, bundles)
	for userID, clients := range fresh {
		if msg.Recipients[userID] == nil {
			msg.Recipients[userID] = make(map[string]Ciphertext, len(clients))
		}
		for clientID, ct := range clients {
			msg.Recipients[userID][clientID] = ct
		}
	}
	return nil
}

// Broadcast sends plaintext to every device of every member of a team:
// resolve prekeys, encrypt per device, post, and on a 412 mismatch run
// exactly one repair-and-retry cycle. A second rejection of any kind is
// terminal.
func (s *Service) Broadcast(ctx context.Context, teamID string, plaintext []byte) (*ClientMismatch, error) {
	if s.clientID == "" {
		return nil, fmt.Errorf("broadcast: no sender client registered")
	}

	bundles, err := s.ResolveTeamPreKeys(ctx, teamID)
	if err != nil {
		return nil, err
	}

	// The backend reports coverage against the full target-user list,
	// independent of which devices we could actually encrypt for.
	targets := make([]string, 0, len(bundles))
	for userID := range bundles {
		targets = append(targets, userID)
	}

	msg := &BroadcastMessage{
		Sender:        s.clientID,
		Recipients:    s.EncryptForDevices(plaintext, bundles),
		ReportMissing: targets,
	}

	ack, err := s.PostBroadcastMessage(ctx, msg)
	if err == nil {
		return ack, nil
	}

	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		return nil, err
	}

	logf(s.logger, "broadcast mismatch: missing=%d deleted=%d users, repairing",
		len(mismatch.Missing), len(mismatch.Deleted))

	if err := s.repairBroadcast(ctx, mismatch, msg, plaintext); err != nil {
		return nil, err
	}

	// One retry; any further rejection propagates unmodified.
	return s.PostBroadcastMessage(ctx, msg)
}

// BroadcastText sends a text message to the whole team.
func (s *Service) BroadcastText(ctx context.Context, teamID, text string) (*ClientMismatch, error) {
	plaintext, err := NewTextMessage(text).Marshal()
	if err != nil {
		return nil, err
	}
	return s.Broadcast(ctx, teamID, plaintext)
}

// BroadcastAvailability announces an availability status to the whole team.
func (s *Service) BroadcastAvailability(ctx context.Context, teamID string, t AvailabilityType) (*ClientMismatch, error) {
	plaintext, err := NewAvailabilityMessage(t).Marshal()
	if err != nil {
		return nil, err
	}
	return s.Broadcast(ctx, teamID, plaintext)
}
