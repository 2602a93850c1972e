// Package signaling defines the wire envelope for call signaling messages and
// routes inbound messages to the call engine.
package signaling

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"voicecall-engine/internal/media"
)

// Category classifies a signaling message.
type Category string

const (
	CategoryOffer        Category = "OFFER"
	CategoryAnswer       Category = "ANSWER"
	CategoryICECandidate Category = "ICE_CANDIDATE"
	CategoryEnd          Category = "END"
	CategoryBusy         Category = "BUSY"
	CategoryCancel       Category = "CANCEL"
	CategoryFailed       Category = "FAILED"
	CategoryDecline      Category = "DECLINE"
)

// terminationCategories are the categories that end a call from the remote side.
var terminationCategories = map[Category]bool{
	CategoryEnd:     true,
	CategoryBusy:    true,
	CategoryCancel:  true,
	CategoryFailed:  true,
	CategoryDecline: true,
}

// IsTermination reports whether c ends a call.
func (c Category) IsTermination() bool { return terminationCategories[c] }

// Message is the transport envelope for one signaling event.
//
// Correlation rules:
//   - An OFFER's own MessageID is the call id.
//   - Every other category correlates via QuoteMessageID, which quotes the
//     originating call's message id.
//
// Data carries a base64 payload: a JSON session description for OFFER/ANSWER,
// a JSON candidate array for ICE_CANDIDATE, empty for terminations.
type Message struct {
	MessageID      string   `json:"message_id"`
	QuoteMessageID string   `json:"quote_message_id,omitempty"`
	SenderID       string   `json:"sender_id"`
	RecipientID    string   `json:"recipient_id,omitempty"`
	Category       Category `json:"category"`
	Data           string   `json:"data,omitempty"`
}

// EncodeSessionDescription packs an opaque session description into the
// base64 wire form.
func EncodeSessionDescription(desc media.SessionDescription) (string, error) {
	if desc.IsZero() {
		return "", fmt.Errorf("signaling: empty session description")
	}
	if !json.Valid(desc.Raw) {
		return "", fmt.Errorf("signaling: session description is not valid JSON")
	}
	return base64.StdEncoding.EncodeToString(desc.Raw), nil
}

// DecodeSessionDescription unpacks the base64 wire form. The payload is
// validated as JSON but otherwise passed through untouched.
func DecodeSessionDescription(data string) (media.SessionDescription, error) {
	if data == "" {
		return media.SessionDescription{}, fmt.Errorf("signaling: empty payload")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return media.SessionDescription{}, fmt.Errorf("signaling: payload is not base64: %w", err)
	}
	if !json.Valid(raw) {
		return media.SessionDescription{}, fmt.Errorf("signaling: session description is not valid JSON")
	}
	return media.SessionDescription{Raw: raw}, nil
}

// EncodeCandidates packs ICE candidates into the base64 JSON-array wire form.
func EncodeCandidates(candidates []media.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("signaling: no candidates")
	}
	raws := make([]json.RawMessage, 0, len(candidates))
	for _, c := range candidates {
		if !json.Valid(c.Raw) {
			return "", fmt.Errorf("signaling: candidate is not valid JSON")
		}
		raws = append(raws, c.Raw)
	}
	b, err := json.Marshal(raws)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeCandidates unpacks the base64 JSON-array wire form.
func DecodeCandidates(data string) ([]media.Candidate, error) {
	if data == "" {
		return nil, fmt.Errorf("signaling: empty payload")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("signaling: payload is not base64: %w", err)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, fmt.Errorf("signaling: candidate payload is not a JSON array: %w", err)
	}
	out := make([]media.Candidate, 0, len(raws))
	for _, r := range raws {
		out = append(out, media.Candidate{Raw: r})
	}
	return out, nil
}
