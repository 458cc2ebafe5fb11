package protocol_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyrcon/rconctl/protocol"
)

var _ = Describe("Protocol", func() {
	Describe("ParseProtocol()", func() {
		It("parses the canonical names", func() {
			proto, err := protocol.ParseProtocol("source")
			Expect(err).To(Succeed())
			Expect(proto).To(Equal(protocol.Source))

			proto, err = protocol.ParseProtocol("hyrcon")
			Expect(err).To(Succeed())
			Expect(proto).To(Equal(protocol.Hyrcon))
		})

		It("accepts the common aliases regardless of case", func() {
			proto, err := protocol.ParseProtocol("SRC")
			Expect(err).To(Succeed())
			Expect(proto).To(Equal(protocol.Source))

			proto, err = protocol.ParseProtocol(" Legacy ")
			Expect(err).To(Succeed())
			Expect(proto).To(Equal(protocol.Hyrcon))
		})

		It("rejects unknown protocol names", func() {
			_, err := protocol.ParseProtocol("minecraft")
			Expect(errors.Is(err, protocol.ErrUnsupportedProtocol)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("minecraft"))
		})
	})

	Describe("DefaultPort()", func() {
		It("matches the conventional ports", func() {
			Expect(protocol.Source.DefaultPort()).To(Equal(25575))
			Expect(protocol.Hyrcon.DefaultPort()).To(Equal(5522))
		})
	})

	Describe("String()", func() {
		It("returns the canonical lowercase names", func() {
			Expect(protocol.Source.String()).To(Equal("source"))
			Expect(protocol.Hyrcon.String()).To(Equal("hyrcon"))
		})
	})

	Describe("SourceGreeting()", func() {
		It("always requires authentication", func() {
			greeting := protocol.SourceGreeting()
			Expect(greeting.RequiresAuth()).To(BeTrue())
			Expect(greeting.Banner).To(Equal("SOURCE RCON READY"))
			Expect(greeting.Protocol).To(Equal(protocol.Source))
		})
	})
})
