package lnwire

import (
	"encoding/binary"
	"fmt"
)

// FailCode specifies the precise reason that an upstream HTLC was canceled.
// Each UpdateFailHTLC message carries a FailCode which is to be passed
// backwards, encrypted at each step back to the source of the HTLC within the
// route.
type FailCode uint16

// The currently defined onion failure types within this current version of the
// Lightning protocol.
const (
	// FlagBadOnion error flag describes an unparsable, encrypted by
	// previous node.
	FlagBadOnion FailCode = 0x8000

	// FlagPerm error flag indicates a permanent failure.
	FlagPerm FailCode = 0x4000

	// FlagNode error flag indicates a node failure.
	FlagNode FailCode = 0x2000

	// FlagUpdate error flag indicates a new channel update is enclosed
	// within the error.
	FlagUpdate FailCode = 0x1000
)

// The set of failure codes a forwarding or terminal node may report back to
// the sender of a payment.
const (
	CodeNone                          FailCode = 0
	CodeInvalidRealm                  FailCode = FlagPerm | 1
	CodeTemporaryNodeFailure          FailCode = FlagNode | 2
	CodePermanentNodeFailure          FailCode = FlagPerm | FlagNode | 2
	CodeRequiredNodeFeatureMissing    FailCode = FlagPerm | FlagNode | 3
	CodeInvalidOnionVersion           FailCode = FlagBadOnion | FlagPerm | 4
	CodeInvalidOnionHmac              FailCode = FlagBadOnion | FlagPerm | 5
	CodeInvalidOnionKey               FailCode = FlagBadOnion | FlagPerm | 6
	CodeTemporaryChannelFailure       FailCode = FlagUpdate | 7
	CodePermanentChannelFailure       FailCode = FlagPerm | 8
	CodeRequiredChannelFeatureMissing FailCode = FlagPerm | 9
	CodeUnknownNextPeer               FailCode = FlagPerm | 10
	CodeAmountBelowMinimum            FailCode = FlagUpdate | 11
	CodeFeeInsufficient               FailCode = FlagUpdate | 12
	CodeIncorrectCltvExpiry           FailCode = FlagUpdate | 13
	CodeExpiryTooSoon                 FailCode = FlagUpdate | 14
	CodeUnknownPaymentHash            FailCode = FlagPerm | 15
	CodeIncorrectPaymentAmount        FailCode = FlagPerm | 16
	CodeFinalExpiryTooSoon            FailCode = 17
	CodeFinalIncorrectCltvExpiry      FailCode = 18
	CodeFinalIncorrectHtlcAmount      FailCode = 19
	CodeChannelDisabled               FailCode = FlagUpdate | 20
	CodeExpiryTooFar                  FailCode = 21
)

// IsBadOnion returns true if the failure was caused by an onion the
// reporting node could not parse.
func (c FailCode) IsBadOnion() bool {
	return c&FlagBadOnion == FlagBadOnion
}

// IsPermanent returns true if the failure is not expected to go away if the
// payment is retried over the same route.
func (c FailCode) IsPermanent() bool {
	return c&FlagPerm == FlagPerm
}

// String returns the string representation of the failure code.
func (c FailCode) String() string {
	switch c {
	case CodeNone:
		return "None"

	case CodeInvalidRealm:
		return "InvalidRealm"

	case CodeTemporaryNodeFailure:
		return "TemporaryNodeFailure"

	case CodePermanentNodeFailure:
		return "PermanentNodeFailure"

	case CodeRequiredNodeFeatureMissing:
		return "RequiredNodeFeatureMissing"

	case CodeInvalidOnionVersion:
		return "InvalidOnionVersion"

	case CodeInvalidOnionHmac:
		return "InvalidOnionHmac"

	case CodeInvalidOnionKey:
		return "InvalidOnionKey"

	case CodeTemporaryChannelFailure:
		return "TemporaryChannelFailure"

	case CodePermanentChannelFailure:
		return "PermanentChannelFailure"

	case CodeRequiredChannelFeatureMissing:
		return "RequiredChannelFeatureMissing"

	case CodeUnknownNextPeer:
		return "UnknownNextPeer"

	case CodeAmountBelowMinimum:
		return "AmountBelowMinimum"

	case CodeFeeInsufficient:
		return "FeeInsufficient"

	case CodeIncorrectCltvExpiry:
		return "IncorrectCltvExpiry"

	case CodeExpiryTooSoon:
		return "ExpiryTooSoon"

	case CodeUnknownPaymentHash:
		return "UnknownPaymentHash"

	case CodeIncorrectPaymentAmount:
		return "IncorrectPaymentAmount"

	case CodeFinalExpiryTooSoon:
		return "FinalExpiryTooSoon"

	case CodeFinalIncorrectCltvExpiry:
		return "FinalIncorrectCltvExpiry"

	case CodeFinalIncorrectHtlcAmount:
		return "FinalIncorrectHtlcAmount"

	case CodeChannelDisabled:
		return "ChannelDisabled"

	case CodeExpiryTooFar:
		return "ExpiryTooFar"

	default:
		return "<unknown>"
	}
}

// FailureMessage is a decoded onion failure: the code followed by the
// opaque, code specific failure data.
type FailureMessage struct {
	// Code is the failure code reported by the erring node.
	Code FailCode

	// Data holds whatever followed the code, e.g. an embedded channel
	// update for FlagUpdate failures.
	Data []byte
}

// NewFailureMessage creates a failure message with the code and data
// provided.
func NewFailureMessage(code FailCode, data []byte) *FailureMessage {
	return &FailureMessage{
		Code: code,
		Data: data,
	}
}

// Error returns a human readable string describing the failure.
func (f *FailureMessage) Error() string {
	if len(f.Data) == 0 {
		return fmt.Sprintf("onion failure: %v", f.Code)
	}

	return fmt.Sprintf("onion failure: %v (%d bytes of data)", f.Code,
		len(f.Data))
}

// Encode serializes the failure as the 2 byte code followed by its data.
func (f *FailureMessage) Encode() []byte {
	b := make([]byte, 2+len(f.Data))
	binary.BigEndian.PutUint16(b[:2], uint16(f.Code))
	copy(b[2:], f.Data)

	return b
}

// DecodeFailureMessage parses a failure message: the first two bytes are the
// failure code, the rest is opaque failure data.
func DecodeFailureMessage(msg []byte) (*FailureMessage, error) {
	if len(msg) < 2 {
		return nil, fmt.Errorf("failure message too short: %d bytes",
			len(msg))
	}

	data := make([]byte, len(msg)-2)
	copy(data, msg[2:])

	return &FailureMessage{
		Code: FailCode(binary.BigEndian.Uint16(msg[:2])),
		Data: data,
	}, nil
}
