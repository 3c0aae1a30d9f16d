package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

type wrapper struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func TestEnvelopePayloadDecoding(t *testing.T) {
	raw := MustMarshal(wrapper{EventType: "PaymentAuthorized", Payload: MustMarshal(sample{OrderID: "o-1", Amount: 100000})})

	var w wrapper
	require.NoError(t, UnmarshalEnvelope(raw, &w))
	assert.Equal(t, "PaymentAuthorized", w.EventType)

	p, err := UnwrapPayload[sample](w.Payload)
	require.NoError(t, err)
	assert.Equal(t, sample{OrderID: "o-1", Amount: 100000}, p)

	_, err = UnwrapPayload[sample](json.RawMessage(`"nope"`))
	assert.ErrorContains(t, err, "decode payload")
}

func TestMustMarshalPanicsOnUnsupported(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(make(chan int)) })
}
