package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyrcon/rconctl/protocol"
)

func frame(id, kind int32, payload []byte, terminator []byte) []byte {
	b := &bytes.Buffer{}
	binary.Write(b, binary.LittleEndian, int32(len(payload)+8+len(terminator))) //nolint:errcheck
	binary.Write(b, binary.LittleEndian, id)                                    //nolint:errcheck
	binary.Write(b, binary.LittleEndian, kind)                                  //nolint:errcheck
	b.Write(payload)
	b.Write(terminator)
	return b.Bytes()
}

var _ = Describe("Packet", func() {
	Describe("Marshal()", func() {
		It("builds the exact frame bytes", func() {
			data, err := protocol.Packet{ID: 1, Kind: protocol.KindAuth, Payload: "secret"}.Marshal()
			Expect(err).To(Succeed())

			Expect(data).To(Equal([]byte{
				16, 0, 0, 0, // length = 8 + 6 + 2
				1, 0, 0, 0, // id
				3, 0, 0, 0, // kind
				's', 'e', 'c', 'r', 'e', 't',
				0, 0,
			}))
		})

		It("rejects payloads containing NUL", func() {
			_, err := protocol.Packet{ID: 1, Kind: protocol.KindExecCommand, Payload: "say\x00hi"}.Marshal()
			Expect(errors.Is(err, protocol.ErrPayloadContainsNul)).To(BeTrue())
		})
	})

	Describe("ReadPacket()", func() {
		It("round-trips an empty payload", func() {
			data, err := protocol.Packet{ID: 7, Kind: protocol.KindExecCommand}.Marshal()
			Expect(err).To(Succeed())

			packet, err := protocol.ReadPacket(bytes.NewReader(data))
			Expect(err).To(Succeed())
			Expect(packet.ID).To(Equal(int32(7)))
			Expect(packet.Kind).To(Equal(protocol.KindExecCommand))
			Expect(packet.Payload).To(BeEmpty())
		})

		It("round-trips a payload larger than 4096 bytes", func() {
			payload := strings.Repeat("command output ", 400)
			Expect(len(payload)).To(BeNumerically(">=", 4096))

			data, err := protocol.Packet{ID: -3, Kind: protocol.KindResponseValue, Payload: payload}.Marshal()
			Expect(err).To(Succeed())

			packet, err := protocol.ReadPacket(bytes.NewReader(data))
			Expect(err).To(Succeed())
			Expect(packet.ID).To(Equal(int32(-3)))
			Expect(packet.Kind).To(Equal(protocol.KindResponseValue))
			Expect(packet.Payload).To(Equal(payload))
		})

		It("rejects a declared length below the minimum frame", func() {
			b := &bytes.Buffer{}
			Expect(binary.Write(b, binary.LittleEndian, int32(5))).To(Succeed())
			b.Write(make([]byte, 5))

			_, err := protocol.ReadPacket(b)
			Expect(errors.Is(err, protocol.ErrPacketTooSmall)).To(BeTrue())
		})

		It("rejects a negative declared length without panicking", func() {
			b := &bytes.Buffer{}
			Expect(binary.Write(b, binary.LittleEndian, int32(-1))).To(Succeed())

			_, err := protocol.ReadPacket(b)
			Expect(errors.Is(err, protocol.ErrPacketTooSmall)).To(BeTrue())
		})

		It("rejects missing trailing NUL terminators", func() {
			data := frame(1, protocol.KindResponseValue, []byte("hello"), []byte{0, 'x'})

			_, err := protocol.ReadPacket(bytes.NewReader(data))
			Expect(errors.Is(err, protocol.ErrPacketBadTerminator)).To(BeTrue())
		})

		It("rejects payloads that are not valid UTF-8", func() {
			data := frame(1, protocol.KindResponseValue, []byte{0xff, 0xfe, 0xfd}, []byte{0, 0})

			_, err := protocol.ReadPacket(bytes.NewReader(data))
			Expect(errors.Is(err, protocol.ErrPacketBadEncoding)).To(BeTrue())
		})

		It("keeps only the segment before an embedded NUL", func() {
			data := frame(4, protocol.KindResponseValue, []byte("real output\x00padding"), []byte{0, 0})

			packet, err := protocol.ReadPacket(bytes.NewReader(data))
			Expect(err).To(Succeed())
			Expect(packet.Payload).To(Equal("real output"))
		})

		It("returns the read error when the body is truncated", func() {
			data := frame(4, protocol.KindResponseValue, []byte("truncated"), []byte{0, 0})

			_, err := protocol.ReadPacket(bytes.NewReader(data[:8]))
			Expect(err).ToNot(Succeed())
		})
	})
})
