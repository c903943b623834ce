package channeldb

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnrouter/channeldb/models"
	"github.com/lightningnetwork/lnrouter/lnwire"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

// channelInfosKey is the name of the document holding every verified
// channel, keyed by the hex encoded short channel id.
const channelInfosKey = "channel_infos"

// policyRecord is the persisted form of a ChannelEdgePolicy.
type policyRecord struct {
	CltvExpiryDelta           uint16 `json:"cltv_expiry_delta"`
	HtlcMinimumMsat           uint64 `json:"htlc_minimum_msat"`
	FeeBaseMsat               uint32 `json:"fee_base_msat"`
	FeeProportionalMillionths uint32 `json:"fee_proportional_millionths"`
	Flags                     uint16 `json:"flags"`
}

// channelRecord is the persisted form of a ChannelInfo. Absent policies and
// an unknown capacity are encoded as null.
type channelRecord struct {
	ShortChannelID string        `json:"short_channel_id"`
	NodeID1        string        `json:"node_id_1"`
	NodeID2        string        `json:"node_id_2"`
	PolicyNode1    *policyRecord `json:"policy_node1"`
	PolicyNode2    *policyRecord `json:"policy_node2"`
	CapacitySat    *int64        `json:"capacity_sat"`
}

// channelRecords is the content of the channel_infos document.
type channelRecords map[string]*channelRecord

func encodePolicy(p *models.ChannelEdgePolicy) *policyRecord {
	if p == nil {
		return nil
	}

	return &policyRecord{
		CltvExpiryDelta:           p.TimeLockDelta,
		HtlcMinimumMsat:           uint64(p.MinHTLC),
		FeeBaseMsat:               p.FeeBaseMSat,
		FeeProportionalMillionths: p.FeeProportionalMillionths,
		Flags:                     uint16(p.Flags),
	}
}

func decodePolicy(p *policyRecord) *models.ChannelEdgePolicy {
	if p == nil {
		return nil
	}

	return &models.ChannelEdgePolicy{
		TimeLockDelta:             p.CltvExpiryDelta,
		MinHTLC:                   lnwire.MilliSatoshi(p.HtlcMinimumMsat),
		FeeBaseMSat:               p.FeeBaseMsat,
		FeeProportionalMillionths: p.FeeProportionalMillionths,
		Flags:                     lnwire.ChanUpdateFlag(p.Flags),
	}
}

// encodeChannelInfo converts a channel into its persisted form.
func encodeChannelInfo(info *models.ChannelInfo) *channelRecord {
	rec := &channelRecord{
		ShortChannelID: info.ChannelID.Hex(),
		NodeID1:        info.NodeKey1Bytes.String(),
		NodeID2:        info.NodeKey2Bytes.String(),
		PolicyNode1:    encodePolicy(info.Policy1),
		PolicyNode2:    encodePolicy(info.Policy2),
	}
	info.Capacity.WhenSome(func(capacity btcutil.Amount) {
		sat := int64(capacity)
		rec.CapacitySat = &sat
	})

	return rec
}

// decodeChannelRecord parses a persisted channel.
func decodeChannelRecord(rec *channelRecord) (*models.ChannelInfo, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: null record", ErrCorruptRecord)
	}

	scid, err := lnwire.NewShortChanIDFromHex(rec.ShortChannelID)
	if err != nil {
		return nil, fmt.Errorf("%w: short_channel_id: %v",
			ErrCorruptRecord, err)
	}

	node1, err := route.NewVertexFromStr(rec.NodeID1)
	if err != nil {
		return nil, fmt.Errorf("%w: node_id_1: %v", ErrCorruptRecord,
			err)
	}

	node2, err := route.NewVertexFromStr(rec.NodeID2)
	if err != nil {
		return nil, fmt.Errorf("%w: node_id_2: %v", ErrCorruptRecord,
			err)
	}

	info, err := models.NewChannelInfo(scid, node1, node2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	if rec.CapacitySat != nil {
		info.SetCapacity(btcutil.Amount(*rec.CapacitySat))
	}
	info.Policy1 = decodePolicy(rec.PolicyNode1)
	info.Policy2 = decodePolicy(rec.PolicyNode2)

	return info, nil
}
