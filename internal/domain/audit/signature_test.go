package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facility-hub/facility-hub/internal/domain/request"
)

func TestSignAndVerifyHistory(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	from := request.StatusAssigned
	reason := "wrong category"
	h := &request.History{
		HistoryID:      uuid.New(),
		Number:         "RH-000007",
		RequestID:      uuid.New(),
		Action:         request.ActionSentBack,
		FromStatus:     &from,
		ToStatus:       request.StatusSubmitted,
		SentBackReason: &reason,
		CreatedAt:      time.Now(),
		CreatedBy:      uuid.New(),
		ActorRole:      "SERVICER",
		SignatureKeyID: "k1",
	}

	sig, err := SignHistory(h, key)
	require.NoError(t, err)
	h.Signature = sig

	ok, err := VerifyHistorySignature(h, key)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := "typo"
	h.SentBackReason = &tampered
	ok, err = VerifyHistorySignature(h, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUnsignedHistory(t *testing.T) {
	ok, err := VerifyHistorySignature(&request.History{}, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignatureSurvivesMicrosecondStorage(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	reason := "parts on order"
	r := &request.Request{RequestID: uuid.New(), Status: request.StatusOnHold}
	from := request.StatusInProgress
	h := request.NewHistory(request.Entry{
		Request:    r,
		Operation:  request.OpHold,
		FromStatus: &from,
		ActorID:    uuid.New(),
		ActorRole:  "SERVICER",
		Reason:     &reason,
		At:         time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC),
	})
	h.Number = "RH-000001"
	h.SignatureKeyID = "k1"

	sig, err := SignHistory(h, key)
	require.NoError(t, err)
	h.Signature = sig

	// TIMESTAMPTZ keeps microseconds and rounds anything finer.
	h.CreatedAt = h.CreatedAt.Round(time.Microsecond)
	ok, err := VerifyHistorySignature(h, key)
	require.NoError(t, err)
	assert.True(t, ok)
}
