package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySampleRepo struct {
	mu      sync.Mutex
	samples map[string]tracking.LocationSample
	failing error
}

func newMemorySampleRepo() *memorySampleRepo {
	return &memorySampleRepo{samples: make(map[string]tracking.LocationSample)}
}

func (m *memorySampleRepo) Create(ctx context.Context, sample tracking.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	if _, ok := m.samples[sample.ID]; ok {
		return tracking.ErrSampleExists
	}
	m.samples[sample.ID] = sample
	return nil
}

func (m *memorySampleRepo) ListByEmail(ctx context.Context, email string, filter tracking.SampleFilter) ([]tracking.LocationSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tracking.LocationSample
	for _, s := range m.samples {
		if s.Email == email {
			out = append(out, s)
		}
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func validRequest(t *testing.T) tracking.UploadSampleRequest {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return tracking.UploadSampleRequest{LocationSample: tracking.LocationSample{
		ID:           id.String(),
		Latitude:     -6.2,
		Longitude:    106.8,
		Accuracy:     8,
		CapturedAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Email:        "Ana@Campus.ac.id",
		Role:         tracking.RoleStaff,
		BatteryLevel: 0.8,
	}}
}

func TestRecord_StoresSample(t *testing.T) {
	repo := newMemorySampleRepo()
	svc := NewLocationService(repo, sse.NewHub(0))

	resp, created, err := svc.Record(context.Background(), "ana@campus.ac.id", validRequest(t))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ana@campus.ac.id", resp.UserEmail)
	assert.Equal(t, string(tracking.SourceScheduler), resp.Source)
	assert.Len(t, repo.samples, 1)
}

func TestRecord_DuplicateIsSuccess(t *testing.T) {
	repo := newMemorySampleRepo()
	svc := NewLocationService(repo, sse.NewHub(0))
	req := validRequest(t)

	_, created, err := svc.Record(context.Background(), "ana@campus.ac.id", req)
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = svc.Record(context.Background(), "ana@campus.ac.id", req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.samples, 1)
}

func TestRecord_IdentityMismatch(t *testing.T) {
	svc := NewLocationService(newMemorySampleRepo(), sse.NewHub(0))

	_, _, err := svc.Record(context.Background(), "budi@campus.ac.id", validRequest(t))
	assert.ErrorIs(t, err, tracking.ErrIdentityMismatch)
}

func TestRecord_Validation(t *testing.T) {
	svc := NewLocationService(newMemorySampleRepo(), sse.NewHub(0))
	req := validRequest(t)
	req.Latitude = 123
	req.Role = "student"

	_, _, err := svc.Record(context.Background(), "ana@campus.ac.id", req)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "latitude")
	assert.Contains(t, verrs.ToMap(), "user_role")
}

func TestRecord_RepositoryFailure(t *testing.T) {
	repo := newMemorySampleRepo()
	repo.failing = errors.New("connection reset")
	svc := NewLocationService(repo, sse.NewHub(0))

	_, _, err := svc.Record(context.Background(), "ana@campus.ac.id", validRequest(t))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, tracking.ErrSampleExists)
}

func TestListMine(t *testing.T) {
	repo := newMemorySampleRepo()
	svc := NewLocationService(repo, sse.NewHub(0))
	for range 3 {
		_, _, err := svc.Record(context.Background(), "ana@campus.ac.id", validRequest(t))
		require.NoError(t, err)
	}

	got, err := svc.ListMine(context.Background(), "ANA@campus.ac.id", tracking.SampleFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.ListMine(context.Background(), "ana@campus.ac.id", tracking.SampleFilter{Limit: 1000})
	assert.Error(t, err)
}

func TestSubscribe_ReceivesNewSamplesOnly(t *testing.T) {
	svc := NewLocationService(newMemorySampleRepo(), sse.NewHub(4))
	events, cleanup := svc.Subscribe(context.Background(), "ANA@campus.ac.id")
	defer cleanup()

	req := validRequest(t)
	_, _, err := svc.Record(context.Background(), "ana@campus.ac.id", req)
	require.NoError(t, err)
	_, _, err = svc.Record(context.Background(), "ana@campus.ac.id", req)
	require.NoError(t, err)

	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, EventSampleRecorded, ev.Event)
	assert.Equal(t, req.ID, ev.Data.(tracking.SampleResponse).ID)
}
