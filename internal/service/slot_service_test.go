package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbid/tutorbid-api/internal/models"
)

func testWindow(duration, buffer int) *models.AvailabilityWindow {
	return &models.AvailabilityWindow{
		ID:                  "win-1",
		InstructorID:        "inst-1",
		Date:                "2024-06-10",
		StartTime:           "09:00",
		EndTime:             "10:00",
		SlotDurationMinutes: duration,
		BufferMinutes:       buffer,
		MaxBookingsPerSlot:  1,
		MinAdvanceHours:     1,
	}
}

func TestGenerateSlotsNoBuffer(t *testing.T) {
	slots, err := GenerateSlots(testWindow(30, 0))
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, "09:00", slots[0].StartTime.Format("15:04"))
	assert.Equal(t, "09:30", slots[0].EndTime.Format("15:04"))
	assert.Equal(t, "09:30", slots[1].StartTime.Format("15:04"))
	assert.Equal(t, "10:00", slots[1].EndTime.Format("15:04"))
}

func TestGenerateSlotsWithBuffer(t *testing.T) {
	// A second slot would run 09:45-10:15, crossing the window end.
	slots, err := GenerateSlots(testWindow(30, 15))
	require.NoError(t, err)
	require.Len(t, slots, 1)

	assert.Equal(t, "09:00", slots[0].StartTime.Format("15:04"))
	assert.Equal(t, "09:30", slots[0].EndTime.Format("15:04"))
}

func TestGenerateSlotsDurationExceedsWindow(t *testing.T) {
	slots, err := GenerateSlots(testWindow(90, 0))
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSlotsNeverOverlapOrEscapeWindow(t *testing.T) {
	window := testWindow(15, 5)
	window.EndTime = "12:00"

	slots, err := GenerateSlots(window)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	start, end, err := window.Bounds()
	require.NoError(t, err)

	for i, slot := range slots {
		assert.False(t, slot.StartTime.Before(start), "slot %d starts before the window", i)
		assert.False(t, slot.EndTime.After(end), "slot %d ends after the window", i)
		assert.Equal(t, window.SlotDurationMinutes, int(slot.EndTime.Sub(slot.StartTime)/time.Minute))
		if i > 0 {
			assert.False(t, slot.StartTime.Before(slots[i-1].EndTime), "slot %d overlaps its predecessor", i)
		}
	}
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	first, err := GenerateSlots(testWindow(20, 10))
	require.NoError(t, err)
	second, err := GenerateSlots(testWindow(20, 10))
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].StartTime.Equal(second[i].StartTime))
		assert.True(t, first[i].EndTime.Equal(second[i].EndTime))
	}
}

type memSlotStore struct {
	upserted   []models.TimeSlot
	pruned     []time.Time
	blocked    map[string]bool
	byID       map[string]*models.TimeSlot
	listResult []models.TimeSlot
}

func newMemSlotStore() *memSlotStore {
	return &memSlotStore{blocked: map[string]bool{}, byID: map[string]*models.TimeSlot{}}
}

func (s *memSlotStore) UpsertGenerated(_ context.Context, slots []models.TimeSlot) error {
	s.upserted = append(s.upserted, slots...)
	return nil
}

func (s *memSlotStore) PruneStale(_ context.Context, _ string, keepStarts []time.Time) error {
	s.pruned = keepStarts
	return nil
}

func (s *memSlotStore) FindByID(_ context.Context, id string) (*models.TimeSlot, error) {
	return s.byID[id], nil
}

func (s *memSlotStore) ListByWindow(_ context.Context, _ string) ([]models.TimeSlot, error) {
	return s.listResult, nil
}

func (s *memSlotStore) SetBlocked(_ context.Context, id string, blocked bool, _ *string) error {
	s.blocked[id] = blocked
	return nil
}

func TestMaterializePersistsAndPrunes(t *testing.T) {
	store := newMemSlotStore()
	svc := NewSlotService(store, nil, nil)

	slots, err := svc.Materialize(context.Background(), testWindow(30, 0))
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Len(t, store.upserted, 2)
	require.Len(t, store.pruned, 2)
	assert.True(t, store.pruned[0].Equal(slots[0].StartTime))
	assert.True(t, store.pruned[1].Equal(slots[1].StartTime))
}

func TestListByWindowAnnotatesStatus(t *testing.T) {
	now := time.Now().UTC()
	store := newMemSlotStore()
	store.listResult = []models.TimeSlot{
		{ID: "s1", StartTime: now.Add(time.Hour), MaxBookings: 1, CurrentBookings: 0},
		{ID: "s2", StartTime: now.Add(time.Hour), MaxBookings: 1, CurrentBookings: 1},
		{ID: "s3", StartTime: now.Add(-time.Hour), MaxBookings: 1},
		{ID: "s4", StartTime: now.Add(time.Hour), MaxBookings: 1, IsBlocked: true},
	}
	svc := NewSlotService(store, nil, nil)

	slots, err := svc.ListByWindow(context.Background(), "win-1")
	require.NoError(t, err)
	require.Len(t, slots, 4)

	assert.Equal(t, models.SlotStatusAvailable, slots[0].Status)
	assert.Equal(t, models.SlotStatusBooked, slots[1].Status)
	assert.Equal(t, models.SlotStatusPast, slots[2].Status)
	assert.Equal(t, models.SlotStatusBlocked, slots[3].Status)
}
