package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusFanOut(t *testing.T) {
	b := NewEventBus()
	a, c := b.Subscribe(), b.Subscribe()

	b.Publish(Event{Topic: TopicFilter})
	assert.Equal(t, TopicFilter, (<-a).Topic)
	assert.Equal(t, TopicFilter, (<-c).Topic)

	b.Unsubscribe(a)
	b.Unsubscribe(a)
	_, ok := <-a
	assert.False(t, ok)
}

func TestBusSlowSubscriberIsSkipped(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()
	for i := 0; i < 20; i++ {
		b.Publish(Event{Topic: TopicTable, Generation: uint64(i)})
	}
	assert.Len(t, ch, cap(ch))
}

func TestBusClose(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)

	b.Publish(Event{Topic: TopicClosed})
	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	b.Close()
}
