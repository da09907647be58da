package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/facility-hub/facility-hub/internal/domain/request"
)

type signaturePayload struct {
	HistoryID      string `json:"historyId"`
	Number         string `json:"number"`
	RequestID      string `json:"requestId"`
	Action         string `json:"action"`
	FromStatus     string `json:"fromStatus,omitempty"`
	ToStatus       string `json:"toStatus"`
	Priority       string `json:"priority,omitempty"`
	ServicerID     string `json:"servicerId,omitempty"`
	SentBackReason string `json:"sentBackReason,omitempty"`
	ReassignReason string `json:"reassignReason,omitempty"`
	HoldReason     string `json:"holdReason,omitempty"`
	CancelReason   string `json:"cancelReason,omitempty"`
	CreatedBy      string `json:"createdBy"`
	ActorRole      string `json:"actorRole"`
	KeyID          string `json:"keyId,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func buildSignaturePayload(h *request.History) signaturePayload {
	payload := signaturePayload{
		HistoryID:      h.HistoryID.String(),
		Number:         h.Number,
		RequestID:      h.RequestID.String(),
		Action:         string(h.Action),
		ToStatus:       string(h.ToStatus),
		SentBackReason: deref(h.SentBackReason),
		ReassignReason: deref(h.ReassignReason),
		HoldReason:     deref(h.HoldReason),
		CancelReason:   deref(h.CancelReason),
		CreatedBy:      h.CreatedBy.String(),
		ActorRole:      h.ActorRole,
		KeyID:          h.SignatureKeyID,
		CreatedAt:      h.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if h.FromStatus != nil {
		payload.FromStatus = string(*h.FromStatus)
	}
	if h.Priority != nil {
		payload.Priority = string(*h.Priority)
	}
	if h.ServicerID != nil {
		payload.ServicerID = h.ServicerID.String()
	}
	return payload
}

// SignHistory generates an HMAC signature for the history row.
func SignHistory(h *request.History, key []byte) ([]byte, error) {
	data, err := json.Marshal(buildSignaturePayload(h))
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyHistorySignature verifies the HMAC signature for the history row.
func VerifyHistorySignature(h *request.History, key []byte) (bool, error) {
	if len(h.Signature) == 0 {
		return false, nil
	}
	expected, err := SignHistory(h, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, h.Signature), nil
}
