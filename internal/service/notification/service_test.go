package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citywatch/report-api/internal/model"
	apperrors "github.com/citywatch/report-api/pkg/errors"
	"github.com/citywatch/report-api/pkg/metrics"
)

// fakeStore is an in-memory NotificationStore with the same full-list
// replace semantics as the real one.
type fakeStore struct {
	mu    sync.Mutex
	lists map[string][]model.Notification
	fail  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{lists: make(map[string][]model.Notification)}
}

func (f *fakeStore) LoadAll(ctx context.Context, userID string) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	stored := f.lists[userID]
	out := make([]model.Notification, len(stored))
	copy(out, stored)
	return out, nil
}

func (f *fakeStore) SaveAll(ctx context.Context, userID string, records []model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("store unavailable")
	}
	stored := make([]model.Notification, len(records))
	copy(stored, records)
	f.lists[userID] = stored
	return nil
}

var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

func newTestService(store *fakeStore) *Service {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics("reportapi", "test")
	})
	logger := zerolog.Nop()
	return NewService(store, nil, nil, nil, &logger, testMetrics)
}

func validCreateRequest() *model.CreateNotificationRequest {
	return &model.CreateNotificationRequest{
		Description: "pothole",
		PhotoURL:    "file://x.jpg",
		Location:    model.Location{Latitude: 1, Longitude: 2, City: "Springfield"},
	}
}

func TestCreate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, model.NotificationStatusPending, record.Status)
	assert.NotEmpty(t, record.SubmittedAt)

	stored, err := store.LoadAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, *record, stored[0])
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	// Frozen clock: every id would collide without the uniqueness bump.
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		record, err := svc.Create(context.Background(), "u1", validCreateRequest())
		require.NoError(t, err)
		assert.False(t, seen[record.ID], "duplicate id %s", record.ID)
		seen[record.ID] = true
	}

	stored, _ := store.LoadAll(context.Background(), "u1")
	assert.Len(t, stored, 5)
}

func TestCreateValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.CreateNotificationRequest
	}{
		{"missing description", &model.CreateNotificationRequest{
			PhotoURL: "file://x.jpg",
			Location: model.Location{Latitude: 1, Longitude: 2, City: "Springfield"},
		}},
		{"whitespace description", &model.CreateNotificationRequest{
			Description: "   ",
			PhotoURL:    "file://x.jpg",
			Location:    model.Location{Latitude: 1, Longitude: 2, City: "Springfield"},
		}},
		{"missing photo", &model.CreateNotificationRequest{
			Description: "pothole",
			Location:    model.Location{Latitude: 1, Longitude: 2, City: "Springfield"},
		}},
		{"unresolved location", &model.CreateNotificationRequest{
			Description: "pothole",
			PhotoURL:    "file://x.jpg",
			Location:    model.Location{Latitude: 1, Longitude: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "u1", tt.req)
			require.Error(t, err)

			// No write happened
			stored, _ := store.LoadAll(ctx, "u1")
			assert.Empty(t, stored)
		})
	}
}

func TestListMostRecentFirst(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	records, err := svc.List(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)

	// Persisted order is oldest-first
	stored, _ := store.LoadAll(ctx, "u1")
	assert.Equal(t, first.ID, stored[0].ID)
	assert.Equal(t, second.ID, stored[1].ID)
}

func TestListWithFilter(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)
	b, err := svc.Create(ctx, "u1", &model.CreateNotificationRequest{
		Description: "trash",
		PhotoURL:    "file://y.jpg",
		Location:    model.Location{Latitude: 3, Longitude: 4, City: "Shelbyville"},
	})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, "u1", b.ID, model.NotificationStatusResolved)
	require.NoError(t, err)

	records, err := svc.List(ctx, "u1", &model.NotificationFilter{
		City:   "spring",
		Status: model.NotificationStatusPending,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, a.ID, records[0].ID)

	records, err = svc.List(ctx, "u1", &model.NotificationFilter{Status: model.NotificationStatusAll})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestEdit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Edit(ctx, "u1", record.ID, &model.UpdateNotificationRequest{
		Description: "deep pothole",
		PhotoURL:    "file://z.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "deep pothole", updated.Description)
	assert.Equal(t, "file://z.jpg", updated.PhotoURL)
	assert.Equal(t, record.ID, updated.ID)
	assert.Equal(t, record.SubmittedAt, updated.SubmittedAt)
}

func TestEditNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Edit(ctx, "u1", "missing", &model.UpdateNotificationRequest{
		Description: "x",
		PhotoURL:    "file://x.jpg",
	})
	assert.True(t, apperrors.IsNotFound(err))

	// List is unchanged
	stored, _ := store.LoadAll(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, *record, stored[0])
}

func TestEditRejectsNonPending(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, "u1", record.ID, model.NotificationStatusResolved)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, "u1", record.ID, &model.UpdateNotificationRequest{
		Description: "x",
		PhotoURL:    "file://x.jpg",
	})
	require.Error(t, err)
	assert.False(t, apperrors.IsNotFound(err))
}

func TestDeleteIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", record.ID))
	stored, _ := store.LoadAll(ctx, "u1")
	assert.Empty(t, stored)

	// Deleting again is a no-op, not an error
	require.NoError(t, svc.Delete(ctx, "u1", record.ID))
	stored, _ = store.LoadAll(ctx, "u1")
	assert.Empty(t, stored)
}

func TestDeleteMissingLeavesListUnchanged(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", "missing"))
	stored, _ := store.LoadAll(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, *record, stored[0])
}

func TestRespond(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Respond(ctx, "u1", record.ID, "  crew dispatched  ")
	require.NoError(t, err)
	assert.Equal(t, "crew dispatched", updated.PrefectureResponse)
	assert.True(t, updated.Answered())
	// Responding never changes the status
	assert.Equal(t, model.NotificationStatusPending, updated.Status)
}

func TestRespondRejectsEmpty(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	for _, response := range []string{"", "   ", "\t\n"} {
		_, err := svc.Respond(ctx, "u1", record.ID, response)
		require.Error(t, err)
	}

	stored, _ := store.LoadAll(ctx, "u1")
	assert.False(t, stored[0].Answered())
}

func TestRespondNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Respond(context.Background(), "u1", "missing", "response")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestChangeStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.ChangeStatus(ctx, "u1", record.ID, model.NotificationStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusResolved, updated.Status)

	// Reload: status persisted, everything else untouched
	reloaded, err := svc.Get(ctx, "u1", record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusResolved, reloaded.Status)
	assert.Equal(t, record.Description, reloaded.Description)
	assert.Equal(t, record.PhotoURL, reloaded.PhotoURL)
	assert.Equal(t, record.Location, reloaded.Location)
	assert.Equal(t, record.SubmittedAt, reloaded.SubmittedAt)
}

func TestChangeStatusRejectsUnknownValue(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	record, err := svc.Create(ctx, "u1", validCreateRequest())
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, "u1", record.ID, "responded")
	require.Error(t, err)

	reloaded, _ := svc.Get(ctx, "u1", record.ID)
	assert.Equal(t, model.NotificationStatusPending, reloaded.Status)
}

func TestChangeStatusNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.ChangeStatus(context.Background(), "u1", "missing", model.NotificationStatusResolved)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConcurrentCreatesAreSerialized(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, "u1", validCreateRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, _ := store.LoadAll(ctx, "u1")
	assert.Len(t, stored, n, "lost update: concurrent creates clobbered each other")
}

func TestStoreFailureSurfacesWithoutPanic(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), "u1", validCreateRequest())
	require.Error(t, err)

	_, err = svc.List(context.Background(), "u1", nil)
	require.Error(t, err)
}
