package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_JSONRoundTripsAsDecimalString(t *testing.T) {
	p := Price(50_000_00000000) // 50000.00000000

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"50000.00000000"`, string(data))

	var got Price
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, p, got)
}

func TestPrice_UnmarshalAcceptsFractionalAndBareInteger(t *testing.T) {
	var p Price
	require.NoError(t, json.Unmarshal([]byte(`"0.50000001"`), &p))
	assert.Equal(t, Price(50000001), p)

	var q Quantity
	require.NoError(t, json.Unmarshal([]byte(`"1200000000"`), &q))
	assert.Equal(t, Quantity(1200000000), q)
}

func TestPrice_NegativeRoundTrips(t *testing.T) {
	p := Price(-250000000)
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"-2.50000000"`, string(data))

	var got Price
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, p, got)
}

func TestSideOrderTypeOrderStatus_JSONRoundTrip(t *testing.T) {
	type wire struct {
		Side   Side
		Type   OrderType
		Status OrderStatus
	}
	w := wire{Side: Sell, Type: Stop, Status: PartiallyFilled}

	data, err := json.Marshal(w)
	require.NoError(t, err)

	var got wire
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, w, got)
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.False(t, Pending.Terminal())
	assert.False(t, PartiallyFilled.Terminal())
	assert.True(t, Filled.Terminal())
	assert.True(t, Cancelled.Terminal())
	assert.True(t, Rejected.Terminal())
}
