package channeldb

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnrouter/channeldb/models"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/stretchr/testify/require"
)

// TestChannelRecordFormat pins the JSON layout of a persisted channel.
func TestChannelRecordFormat(t *testing.T) {
	t.Parallel()

	info := testChannel(t, 0x0102030405060708, 1, 2)
	info.SetCapacity(btcutil.Amount(250_000))
	info.Policy1 = &models.ChannelEdgePolicy{
		TimeLockDelta:             144,
		MinHTLC:                   1000,
		FeeBaseMSat:               1000,
		FeeProportionalMillionths: 1,
		Flags:                     0,
	}

	raw, err := json.Marshal(encodeChannelInfo(info))
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))

	require.Equal(t, "0102030405060708", fields["short_channel_id"])
	require.Equal(t, vertex(1).String(), fields["node_id_1"])
	require.Equal(t, vertex(2).String(), fields["node_id_2"])
	require.EqualValues(t, 250_000, fields["capacity_sat"])
	require.Nil(t, fields["policy_node2"])
	require.Contains(t, fields, "policy_node2")

	policy, ok := fields["policy_node1"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, map[string]interface{}{
		"cltv_expiry_delta":           float64(144),
		"htlc_minimum_msat":           float64(1000),
		"fee_base_msat":               float64(1000),
		"fee_proportional_millionths": float64(1),
		"flags":                       float64(0),
	}, policy)

	var rec channelRecord
	require.NoError(t, json.Unmarshal(raw, &rec))

	decoded, err := decodeChannelRecord(&rec)
	require.NoError(t, err)
	require.Equal(t, info, decoded)
}

// TestChannelRecordUnknownCapacity checks an unknown capacity is stored as
// null and restored as such.
func TestChannelRecordUnknownCapacity(t *testing.T) {
	t.Parallel()

	info := testChannel(t, 5, 1, 2)

	raw, err := json.Marshal(encodeChannelInfo(info))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"capacity_sat":null`)

	var rec channelRecord
	require.NoError(t, json.Unmarshal(raw, &rec))

	decoded, err := decodeChannelRecord(&rec)
	require.NoError(t, err)
	require.True(t, decoded.Capacity.IsNone())
}

// TestDecodeCorruptRecord checks malformed records are reported.
func TestDecodeCorruptRecord(t *testing.T) {
	t.Parallel()

	valid := func() *channelRecord {
		return encodeChannelInfo(testChannel(t, 5, 1, 2))
	}

	tests := []struct {
		name   string
		mutate func(*channelRecord)
	}{
		{
			name: "bad scid",
			mutate: func(r *channelRecord) {
				r.ShortChannelID = "zz"
			},
		},
		{
			name: "short node id",
			mutate: func(r *channelRecord) {
				r.NodeID1 = r.NodeID1[:10]
			},
		},
		{
			name: "bad node id",
			mutate: func(r *channelRecord) {
				r.NodeID2 = "x" + r.NodeID2[1:]
			},
		},
		{
			name: "unordered nodes",
			mutate: func(r *channelRecord) {
				r.NodeID1, r.NodeID2 = r.NodeID2, r.NodeID1
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			rec := valid()
			testCase.mutate(rec)

			_, err := decodeChannelRecord(rec)
			require.ErrorIs(t, err, ErrCorruptRecord)
		})
	}

	_, err := decodeChannelRecord(nil)
	require.ErrorIs(t, err, ErrCorruptRecord)
}

// TestPolicyRecordFlags checks the direction flag survives a round trip.
func TestPolicyRecordFlags(t *testing.T) {
	t.Parallel()

	policy := &models.ChannelEdgePolicy{
		Flags: lnwire.ChanUpdateDirection | lnwire.ChanUpdateDisabled,
	}
	require.Equal(t, policy, decodePolicy(encodePolicy(policy)))
	require.Nil(t, encodePolicy(nil))
	require.Nil(t, decodePolicy(nil))
}
