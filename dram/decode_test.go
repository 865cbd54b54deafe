package dram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coresim/dram"
)

var _ = Describe("Decode", func() {
	It("orders fields low-to-high: block offset, channel, bank, column, rank, row", func() {
		d := dram.Decode{
			Log2BlockSize: 6,
			Log2Channels:  2,
			Log2Banks:     3,
			Log2Columns:   4,
			Log2Ranks:     1,
		}

		f := d.Decode(d.Address(dram.Fields{
			BlockOffset: 0x2a,
			Channel:     3,
			Bank:        5,
			Column:      9,
			Rank:        1,
			Row:         777,
		}))

		Expect(f.BlockOffset).To(BeEquivalentTo(0x2a))
		Expect(f.Channel).To(Equal(3))
		Expect(f.Bank).To(Equal(5))
		Expect(f.Column).To(BeEquivalentTo(9))
		Expect(f.Rank).To(Equal(1))
		Expect(f.Row).To(BeEquivalentTo(777))
	})

	It("does not panic when some field widths are zero", func() {
		d := dram.Decode{Log2BlockSize: 6, Log2Channels: 0, Log2Banks: 2, Log2Columns: 3, Log2Ranks: 0}

		Expect(func() {
			f := d.Decode(d.Address(dram.Fields{Bank: 2, Column: 1, Row: 42}))
			Expect(f.Channel).To(Equal(0))
			Expect(f.Rank).To(Equal(0))
			Expect(f.Row).To(BeEquivalentTo(42))
		}).NotTo(Panic())
	})
})
