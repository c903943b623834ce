package lnwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MessageType is the unique 2 byte big-endian integer that indicates the type
// of message on the wire. All messages have a very simple header which
// consists simply of 2-byte message type. We omit a length field, and checksum
// as the Lightning Protocol is intended to be encapsulated within a
// confidential+authenticated cryptographic messaging protocol.
type MessageType uint16

// The currently defined message types within this current version of the
// Lightning protocol that the graph store consumes.
const (
	MsgChannelAnnouncement MessageType = 256
	MsgChannelUpdate       MessageType = 258
)

// String return the string representation of message type.
func (t MessageType) String() string {
	switch t {
	case MsgChannelAnnouncement:
		return "ChannelAnnouncement"
	case MsgChannelUpdate:
		return "ChannelUpdate"
	default:
		return "<unknown>"
	}
}

// Message is an interface that defines a lightning wire protocol message. The
// interface is general in order to allow implementing types full control over
// the representation of its data.
type Message interface {
	// Decode reads the bytes stream and converts it to the object.
	Decode(io.Reader, uint32) error

	// Encode converts object to the bytes stream and write it into the
	// write buffer.
	Encode(*bytes.Buffer, uint32) error

	// MsgType returns the integer uniquely identifying this message type
	// on the wire.
	MsgType() MessageType
}

// UnknownMessage is an implementation of the error interface that allows the
// creation of an error in response to an unknown message.
type UnknownMessage struct {
	messageType MessageType
}

// Error returns a human readable string describing the error.
//
// This is part of the error interface.
func (u *UnknownMessage) Error() string {
	return fmt.Sprintf("unable to parse message of unknown type: %v",
		u.messageType)
}

// makeEmptyMessage creates a new empty message of the proper concrete type
// based on the passed message type.
func makeEmptyMessage(msgType MessageType) (Message, error) {
	switch msgType {
	case MsgChannelAnnouncement:
		return &ChannelAnnouncement{}, nil
	case MsgChannelUpdate:
		return &ChannelUpdate{}, nil
	default:
		return nil, &UnknownMessage{msgType}
	}
}

// WriteMessage writes a lightning Message to a buffer including the necessary
// header information and returns the number of bytes written.
func WriteMessage(buf *bytes.Buffer, msg Message, pver uint32) (int, error) {
	var mType [2]byte
	binary.BigEndian.PutUint16(mType[:], uint16(msg.MsgType()))

	n, err := buf.Write(mType[:])
	if err != nil {
		return n, err
	}

	before := buf.Len()
	if err := msg.Encode(buf, pver); err != nil {
		return n, err
	}

	return n + buf.Len() - before, nil
}

// ReadMessage reads, validates, and parses the next Lightning message from r
// for the provided protocol version.
func ReadMessage(r io.Reader, pver uint32) (Message, error) {
	var mType [2]byte
	if _, err := io.ReadFull(r, mType[:]); err != nil {
		return nil, err
	}

	msgType := MessageType(binary.BigEndian.Uint16(mType[:]))

	msg, err := makeEmptyMessage(msgType)
	if err != nil {
		return nil, err
	}

	if err := msg.Decode(r, pver); err != nil {
		return nil, err
	}

	return msg, nil
}
