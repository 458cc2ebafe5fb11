package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// PacketOverhead is the number of non-payload bytes counted by the length
// prefix of a Source frame: four for the id, four for the kind and two for
// the trailing NUL terminators. The length prefix itself is not counted.
const PacketOverhead = 4 + 4 + 2

const (
	// KindResponseValue carries command output from the server.
	KindResponseValue int32 = 0

	// KindAuthResponse answers an auth request. It shares the value 2 with
	// KindExecCommand and is distinguished purely by context.
	KindAuthResponse int32 = 2

	// KindExecCommand carries a command from the client.
	KindExecCommand int32 = 2

	// KindAuth carries the password from the client.
	KindAuth int32 = 3
)

var (
	ErrPayloadContainsNul  = errors.New("Packet payload must not contain NUL bytes")
	ErrPacketTooSmall      = errors.New("Packet length is smaller than the minimum frame")
	ErrPacketBadTerminator = errors.New("Packet is missing its trailing NUL terminators")
	ErrPacketBadEncoding   = errors.New("Packet payload is not valid UTF-8")
)

// Packet is a single frame on the Source wire, either direction.
type Packet struct {
	ID      int32
	Kind    int32
	Payload string
}

// Marshal encodes the packet into its binary frame. Payloads containing NUL
// are rejected because NUL terminates the payload region on the wire.
func (p Packet) Marshal() ([]byte, error) {
	if strings.ContainsRune(p.Payload, 0) {
		return nil, ErrPayloadContainsNul
	}

	length := int32(len(p.Payload) + PacketOverhead)

	b := bytes.NewBuffer(make([]byte, 0, 4+length))
	if err := binary.Write(b, binary.LittleEndian, length); err != nil {
		return nil, err
	}
	if err := binary.Write(b, binary.LittleEndian, p.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(b, binary.LittleEndian, p.Kind); err != nil {
		return nil, err
	}
	b.WriteString(p.Payload)
	b.Write([]byte{0, 0})

	return b.Bytes(), nil
}

// ReadPacket reads and decodes one frame from r. The declared length is
// validated before any allocation so a hostile peer cannot cause a panic or
// an oversized read, and the trailing terminator bytes and payload encoding
// are checked before the payload is accepted.
//
// Some servers pad the payload region with data after an embedded NUL; only
// the leading segment is kept.
func ReadPacket(r io.Reader) (Packet, error) {
	var packet Packet

	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return packet, err
	}

	if length < PacketOverhead {
		return packet, fmt.Errorf("Failed to decode frame of declared length %d: %w",
			length, ErrPacketTooSmall)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return packet, err
	}

	packet.ID = int32(binary.LittleEndian.Uint32(body[0:4]))
	packet.Kind = int32(binary.LittleEndian.Uint32(body[4:8]))

	if body[len(body)-2] != 0 || body[len(body)-1] != 0 {
		return packet, ErrPacketBadTerminator
	}

	payload := body[8 : len(body)-2]
	if !utf8.Valid(payload) {
		return packet, ErrPacketBadEncoding
	}

	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	packet.Payload = string(payload)

	return packet, nil
}
