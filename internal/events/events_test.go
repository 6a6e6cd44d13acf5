package events

import (
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEventBus(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bus := NewEventBus(&logger)

	var added, updated []string
	bus.Subscribe(BookingAdded, func(e Event) error {
		added = append(added, string(e.Payload))
		assert.False(t, e.CreatedAt.IsZero())
		return nil
	})
	bus.Subscribe(BookingAdded, func(Event) error {
		return errors.New("sink down")
	})
	bus.Subscribe(BookingUpdated, func(e Event) error {
		updated = append(updated, string(e.Payload))
		return nil
	})

	assert.Equal(t, 1, bus.Publish(Event{Type: BookingAdded, Payload: []byte("a")}))
	assert.Equal(t, 0, bus.Publish(Event{Type: BookingUpdated, Payload: []byte("u")}))
	assert.Equal(t, 0, bus.Publish(Event{Type: "unknown"}))

	assert.Equal(t, []string{"a"}, added)
	assert.Equal(t, []string{"u"}, updated)
}
