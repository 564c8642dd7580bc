package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsInDueOrder(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.CallLater(2, func() { order = append(order, "b") })
	s.CallLater(1, func() { order = append(order, "a") })
	s.CallLater(2, func() { order = append(order, "c") })

	assert.Equal(t, 0, s.Advance(0.5))
	assert.Equal(t, 3, s.Pending())

	assert.Equal(t, 1, s.Advance(1))
	assert.Equal(t, 2, s.Advance(5))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, s.Pending())
	assert.Equal(t, 5.0, s.Now())
}

func TestSchedulerDelayIsRelativeToClock(t *testing.T) {
	s := NewScheduler()
	s.Advance(10)

	ran := false
	s.CallLater(1.5, func() { ran = true })
	s.Advance(11)
	assert.False(t, ran)
	s.Advance(11.5)
	assert.True(t, ran)
}

func TestSchedulerRunsChainedCallsThatFallDue(t *testing.T) {
	s := NewScheduler()
	var ran []int
	s.CallLater(1, func() {
		ran = append(ran, 1)
		s.CallLater(0, func() { ran = append(ran, 2) })
		s.CallLater(5, func() { ran = append(ran, 3) })
	})
	s.CallLater(-3, func() { ran = append(ran, 0) })

	assert.Equal(t, 3, s.Advance(1))
	assert.Equal(t, []int{0, 1, 2}, ran)
	assert.Equal(t, 1, s.Pending())
}
