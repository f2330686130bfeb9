package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_PublishDispatchesByType(t *testing.T) {
	bus := NewEventBus(nil)

	var created, all []int64
	bus.Subscribe(ShiftCreated, func(e Event) error {
		created = append(created, e.ShiftID)
		return nil
	})
	bus.SubscribeAll(func(e Event) error {
		all = append(all, e.ShiftID)
		return errors.New("ignored")
	})

	bus.Publish(Event{Type: ShiftCreated, ShiftID: 1})
	bus.Publish(Event{Type: ShiftDeleted, ShiftID: 2})
	bus.Publish(Event{Type: "unknown", ShiftID: 3})

	assert.Equal(t, []int64{1}, created)
	assert.Equal(t, []int64{1, 2}, all)
}
