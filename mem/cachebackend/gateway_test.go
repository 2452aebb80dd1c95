package cachebackend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cosim/mem/cachebackend"
	"github.com/sarchlab/cosim/mem/membank"
)

var _ = Describe("Gateway", func() {
	var (
		bank    *membank.Bank[uint16]
		gateway *cachebackend.Gateway[uint16]
	)

	BeforeEach(func() {
		bank = membank.MakeBuilder[uint16]().
			WithCapacity(16).
			WithBaseAddress(0x100).
			Build("HalfBank")
		gateway = cachebackend.NewGateway("Gateway", bank, bank.BaseAddress())
	})

	It("should write when write enable is set", func() {
		data, err := gateway.Serve(cachebackend.GatewayRequest[uint16]{
			Addr:        3,
			WriteEnable: true,
			WData:       0xbeef,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(BeZero())
		Expect(bank.GetWord(3)).To(Equal(uint16(0xbeef)))
	})

	It("should read when write enable is clear", func() {
		bank.SetWord(5, 0x1234)

		data, err := gateway.Serve(cachebackend.GatewayRequest[uint16]{
			Addr:  5,
			WData: 0xffff,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(uint16(0x1234)))
		Expect(bank.GetWord(5)).To(Equal(uint16(0x1234)))
	})

	It("should read the word under the pointer", func() {
		bank.SetWord(2, 0x42)
		g := cachebackend.NewGateway("Gateway", bank, 0x104)

		Expect(g.ReadSingleWord()).To(Equal(uint16(0x42)))
	})

	It("should follow a moved pointer", func() {
		bank.SetWord(6, 0x66)
		gateway.SetPointer(0x10c)

		Expect(gateway.Pointer()).To(Equal(uint64(0x10c)))
		Expect(gateway.ReadSingleWord()).To(Equal(uint16(0x66)))
	})

	It("should fail on addresses past the bank", func() {
		_, err := gateway.Serve(cachebackend.GatewayRequest[uint16]{
			Addr:        8,
			WriteEnable: true,
		})

		Expect(err).To(MatchError(membank.ErrOutOfRange))
	})

	It("should agree with the backend on plain accesses", func() {
		backend := cachebackend.NewBackend("Backend", bank)

		_, err := gateway.Serve(cachebackend.GatewayRequest[uint16]{
			Addr: 1, WriteEnable: true, WData: 7,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(backend.Serve(cachebackend.Request[uint16]{
			Cmd: cachebackend.Read, RAddr: 1,
		})).To(Equal(uint16(7)))
	})
})
