package models

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/routing/route"
	"github.com/stretchr/testify/require"
)

func vertex(b byte) route.Vertex {
	var v route.Vertex
	v[0] = 0x02
	v[32] = b
	return v
}

// TestComputeFee checks base and proportional fee computation.
func TestComputeFee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		base   uint32
		rate   uint32
		amount lnwire.MilliSatoshi
		fee    lnwire.MilliSatoshi
	}{
		{
			name:   "base only",
			base:   1000,
			amount: 5_000_000,
			fee:    1000,
		},
		{
			name:   "rate only",
			rate:   100,
			amount: 5_000_000,
			fee:    500,
		},
		{
			name:   "rounds down",
			base:   1,
			rate:   1,
			amount: 999_999,
			fee:    1,
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			policy := &ChannelEdgePolicy{
				FeeBaseMSat:               testCase.base,
				FeeProportionalMillionths: testCase.rate,
			}
			require.Equal(t, testCase.fee,
				policy.ComputeFee(testCase.amount))
		})
	}
}

// TestChannelInfoOrdering checks node keys must be strictly ascending.
func TestChannelInfoOrdering(t *testing.T) {
	t.Parallel()

	scid := lnwire.NewShortChanIDFromInt(1)

	_, err := NewChannelInfo(scid, vertex(2), vertex(1))
	require.ErrorIs(t, err, ErrUnorderedNodeKeys)

	_, err = NewChannelInfo(scid, vertex(1), vertex(1))
	require.ErrorIs(t, err, ErrUnorderedNodeKeys)

	info, err := NewChannelInfo(scid, vertex(1), vertex(2))
	require.NoError(t, err)
	require.True(t, info.Capacity.IsNone())
}

// TestChannelInfoApplyUpdate checks that the direction bit selects which
// policy an update replaces.
func TestChannelInfoApplyUpdate(t *testing.T) {
	t.Parallel()

	info, err := NewChannelInfo(
		lnwire.NewShortChanIDFromInt(1), vertex(1), vertex(2),
	)
	require.NoError(t, err)

	info.ApplyUpdate(&lnwire.ChannelUpdate{
		TimeLockDelta: 40,
		BaseFee:       1000,
	})
	require.NotNil(t, info.Policy1)
	require.Nil(t, info.Policy2)
	require.Equal(t, info.Policy1, info.PolicyForNode(vertex(1)))

	info.ApplyUpdate(&lnwire.ChannelUpdate{
		Flags:           lnwire.ChanUpdateDirection,
		TimeLockDelta:   144,
		HtlcMinimumMsat: 1000,
		FeeRate:         10,
	})
	require.Equal(t, &ChannelEdgePolicy{
		TimeLockDelta:             144,
		MinHTLC:                   1000,
		FeeProportionalMillionths: 10,
		Flags:                     lnwire.ChanUpdateDirection,
	}, info.PolicyForNode(vertex(2)))

	// A later update replaces the policy wholesale.
	info.ApplyUpdate(&lnwire.ChannelUpdate{TimeLockDelta: 6})
	require.Equal(t, &ChannelEdgePolicy{TimeLockDelta: 6}, info.Policy1)

	require.Nil(t, info.PolicyForNode(vertex(3)))

	other, err := info.OtherNodeKeyBytes(vertex(1))
	require.NoError(t, err)
	require.Equal(t, vertex(2), other)

	_, err = info.OtherNodeKeyBytes(vertex(3))
	require.Error(t, err)
}

// TestChannelInfoCopy ensures copies don't share policies.
func TestChannelInfoCopy(t *testing.T) {
	t.Parallel()

	info, err := NewChannelInfo(
		lnwire.NewShortChanIDFromInt(1), vertex(1), vertex(2),
	)
	require.NoError(t, err)
	info.SetCapacity(btcutil.Amount(100_000))
	info.ApplyUpdate(&lnwire.ChannelUpdate{TimeLockDelta: 40})

	cp := info.Copy()
	require.Equal(t, info, cp)

	cp.Policy1.TimeLockDelta = 1
	require.EqualValues(t, 40, info.Policy1.TimeLockDelta)
}
