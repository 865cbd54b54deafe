package vmem_test

import (
	"testing"

	"github.com/sarchlab/coresim/request"
	"github.com/sarchlab/coresim/vmem"
	"github.com/stretchr/testify/assert"
)

func TestInsertAndFind(t *testing.T) {
	pt := vmem.NewPageTable()

	pt.Insert(vmem.Entry{ASID: 1, Key: 0x1000, Frame: 0x9000, Valid: true})

	e, ok := pt.Find(1, 0x1000)
	assert.True(t, ok)
	assert.Equal(t, uint64(0x9000), e.Frame)
}

func TestFindMissReturnsFalse(t *testing.T) {
	pt := vmem.NewPageTable()

	_, ok := pt.Find(1, 0x1000)
	assert.False(t, ok)
}

func TestRemoveDeletesEntry(t *testing.T) {
	pt := vmem.NewPageTable()

	pt.Insert(vmem.Entry{ASID: 1, Key: 0x1000, Frame: 0x9000, Valid: true})
	pt.Remove(1, 0x1000)

	_, ok := pt.Find(1, 0x1000)
	assert.False(t, ok)
}

func TestUpdateOverwritesExistingEntry(t *testing.T) {
	pt := vmem.NewPageTable()

	pt.Insert(vmem.Entry{ASID: 1, Key: 0x1000, Frame: 0x9000, Valid: true})
	pt.Update(vmem.Entry{ASID: 1, Key: 0x1000, Frame: 0xA000, Valid: true})

	e, ok := pt.Find(1, 0x1000)
	assert.True(t, ok)
	assert.Equal(t, uint64(0xA000), e.Frame)
}

func TestUpdateOfMissingEntryPanics(t *testing.T) {
	pt := vmem.NewPageTable()

	assert.Panics(t, func() {
		pt.Update(vmem.Entry{ASID: 1, Key: 0x1000, Frame: 0xA000, Valid: true})
	})
}

func TestEntriesAreIsolatedPerASID(t *testing.T) {
	pt := vmem.NewPageTable()

	pt.Insert(vmem.Entry{ASID: 1, Key: 0x1000, Frame: 0x9000, Valid: true})

	_, ok := pt.Find(request.ASID(2), 0x1000)
	assert.False(t, ok, "the same key in a different ASID's table is a separate slot")
}
