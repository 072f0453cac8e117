package services

import (
	"context"
	"testing"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEventFixture(t *testing.T) (*EventDispatcher, *fakeQueueRepo) {
	t.Helper()
	queue := &fakeQueueRepo{}
	enqueue := NewEnqueueService(newFakePreferenceRepo(), queue, &fakeDeliveryLogRepo{}, newFakeUserRepo(), zap.NewNop())
	enqueue.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return NewEventDispatcher(enqueue, nil, zap.NewNop()), queue
}

func TestEventDispatchQueuesRoutedEvent(t *testing.T) {
	d, queue := newEventFixture(t)

	err := d.Dispatch(context.Background(), UserEvent{
		Type:   "new_match",
		Actor:  "rohan",
		Target: "asha",
		Data:   map[string]interface{}{"matchScore": 92},
	})
	require.NoError(t, err)

	items := queue.snapshot()
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.Equal(t, "asha", it.Username)
		assert.Equal(t, models.TriggerNewMatch, it.Trigger)
		assert.Equal(t, models.PriorityHigh, it.Priority)
		assert.Equal(t, "rohan", it.TemplateData["actor"])
		assert.Equal(t, 92, it.TemplateData["matchScore"])
	}
}

func TestEventDispatchIgnoresUnroutedEvent(t *testing.T) {
	d, queue := newEventFixture(t)

	err := d.Dispatch(context.Background(), UserEvent{
		Type:   "profile_photo_uploaded",
		Actor:  "asha",
		Target: "asha",
	})
	require.NoError(t, err)
	assert.Empty(t, queue.snapshot())
}

func TestEventDispatchSuppressesPreferenceRejection(t *testing.T) {
	d, queue := newEventFixture(t)

	// shortlist_added routes to push, which default preferences deny.
	// A suppressed notification is not an error: the event still happened.
	err := d.Dispatch(context.Background(), UserEvent{
		Type:   "shortlist_added",
		Actor:  "rohan",
		Target: "asha",
	})
	require.NoError(t, err)
	assert.Empty(t, queue.snapshot())
}

func TestEventDispatchDoesNotMutateCallerData(t *testing.T) {
	d, queue := newEventFixture(t)

	data := map[string]interface{}{"matchScore": 92}
	err := d.Dispatch(context.Background(), UserEvent{
		Type:   "new_match",
		Actor:  "rohan",
		Target: "asha",
		Data:   data,
	})
	require.NoError(t, err)

	// The queued items carry the actor, but the producer's map stays as
	// it was handed in.
	items := queue.snapshot()
	require.NotEmpty(t, items)
	assert.Equal(t, "rohan", items[0].TemplateData["actor"])
	assert.Equal(t, map[string]interface{}{"matchScore": 92}, data)
}

func TestEventDispatchPreservesActorAlreadyInData(t *testing.T) {
	d, queue := newEventFixture(t)

	err := d.Dispatch(context.Background(), UserEvent{
		Type:   "new_match",
		Actor:  "rohan",
		Target: "asha",
		Data:   map[string]interface{}{"actor": "someone-else"},
	})
	require.NoError(t, err)

	items := queue.snapshot()
	require.NotEmpty(t, items)
	assert.Equal(t, "someone-else", items[0].TemplateData["actor"])
}
