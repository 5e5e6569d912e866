// Package protocol implements the Cast v2 wire envelope: a small
// six-field protobuf message, hand-encoded with protowire rather than
// generated code, framed with a 4-byte big-endian length prefix over TLS.
package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// PayloadType mirrors CastMessage.PayloadType from the public Cast v2
// extensions_api.proto: payloads are either a UTF-8 JSON string or raw
// bytes. castwave only ever sends/receives the string form.
type PayloadType int32

const (
	PayloadTypeString PayloadType = 0
	PayloadTypeBinary PayloadType = 1
)

// Field numbers from the Cast v2 CastMessage proto.
const (
	fieldProtocolVersion = protowire.Number(1)
	fieldSourceID        = protowire.Number(2)
	fieldDestinationID   = protowire.Number(3)
	fieldNamespace       = protowire.Number(4)
	fieldPayloadType     = protowire.Number(5)
	fieldPayloadUTF8     = protowire.Number(6)
)

// Message is the Cast v2 envelope carried by every frame.
type Message struct {
	ProtocolVersion int32
	SourceID        string
	DestinationID   string
	Namespace       string
	PayloadType     PayloadType
	PayloadUTF8     string
}

// Marshal encodes m into its wire representation.
func Marshal(m Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldProtocolVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ProtocolVersion))
	b = protowire.AppendTag(b, fieldSourceID, protowire.BytesType)
	b = protowire.AppendString(b, m.SourceID)
	b = protowire.AppendTag(b, fieldDestinationID, protowire.BytesType)
	b = protowire.AppendString(b, m.DestinationID)
	b = protowire.AppendTag(b, fieldNamespace, protowire.BytesType)
	b = protowire.AppendString(b, m.Namespace)
	b = protowire.AppendTag(b, fieldPayloadType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.PayloadType))
	b = protowire.AppendTag(b, fieldPayloadUTF8, protowire.BytesType)
	b = protowire.AppendString(b, m.PayloadUTF8)
	return b
}

// Unmarshal decodes a Message from its wire representation.
func Unmarshal(b []byte) (Message, error) {
	var m Message

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("protocol: consuming tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldProtocolVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("protocol: consuming protocol_version: %w", protowire.ParseError(n))
			}
			m.ProtocolVersion = int32(v)
			b = b[n:]

		case fieldSourceID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, fmt.Errorf("protocol: consuming source_id: %w", protowire.ParseError(n))
			}
			m.SourceID = v
			b = b[n:]

		case fieldDestinationID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, fmt.Errorf("protocol: consuming destination_id: %w", protowire.ParseError(n))
			}
			m.DestinationID = v
			b = b[n:]

		case fieldNamespace:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, fmt.Errorf("protocol: consuming namespace: %w", protowire.ParseError(n))
			}
			m.Namespace = v
			b = b[n:]

		case fieldPayloadType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("protocol: consuming payload_type: %w", protowire.ParseError(n))
			}
			m.PayloadType = PayloadType(v)
			b = b[n:]

		case fieldPayloadUTF8:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, fmt.Errorf("protocol: consuming payload_utf8: %w", protowire.ParseError(n))
			}
			m.PayloadUTF8 = v
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return m, fmt.Errorf("protocol: skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return m, nil
}
