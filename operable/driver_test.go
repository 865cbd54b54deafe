package operable_test

import (
	"testing"

	"github.com/sarchlab/coresim/operable"
	"github.com/stretchr/testify/assert"
)

type recordingUnit struct {
	calls []uint64
}

func (u *recordingUnit) Operate(now uint64) bool {
	u.calls = append(u.calls, now)
	return true
}

func TestDriverStepsUnitsInRegistrationOrderEveryCycle(t *testing.T) {
	var order []string

	a := &orderedUnit{name: "a", order: &order}
	b := &orderedUnit{name: "b", order: &order}

	d := operable.NewDriver(a, b)
	d.Run(func(cycle uint64) bool { return cycle >= 2 })

	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
}

type orderedUnit struct {
	name  string
	order *[]string
}

func (u *orderedUnit) Operate(now uint64) bool {
	*u.order = append(*u.order, u.name)
	return true
}

func TestDriverStopsExactlyAtDoneTarget(t *testing.T) {
	u := &recordingUnit{}

	d := operable.NewDriver(u)
	cycles := d.Run(func(cycle uint64) bool { return cycle >= 5 })

	assert.Equal(t, uint64(5), cycles)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, u.calls)
	assert.Equal(t, uint64(5), d.Cycle())
}

func TestDriverWithNoUnitsStillAdvancesCycle(t *testing.T) {
	d := operable.NewDriver()
	cycles := d.Run(func(cycle uint64) bool { return cycle >= 3 })

	assert.Equal(t, uint64(3), cycles)
}
