package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject_SubscribePublishUnsubscribe(t *testing.T) {
	var s Subject[int]
	var got []string

	unsubA := s.Subscribe(func(v int) { got = append(got, "a") })
	s.Subscribe(func(v int) { got = append(got, "b") })
	s.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)

	unsubA()
	unsubA()
	got = nil
	s.Publish(2)
	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, 1, s.Len())
}

func TestSubject_UnsubscribeFromHandler(t *testing.T) {
	var s Subject[string]
	calls := 0
	var unsub func()
	unsub = s.Subscribe(func(string) {
		calls++
		unsub()
	})
	s.Publish("x")
	s.Publish("y")
	assert.Equal(t, 1, calls)
}
