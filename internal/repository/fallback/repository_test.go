package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/repository/contract"
	"temporalos-be/internal/repository/memory"
	"temporalos-be/internal/repository/specification"
	"temporalos-be/pkg/temporal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

type downSessions struct{}

func (downSessions) Create(context.Context, *entity.Session) error { return errDown }
func (downSessions) FindByID(context.Context, string) (*entity.Session, error) {
	return nil, errDown
}
func (downSessions) Update(context.Context, string, entity.SessionUpdate) (*entity.Session, error) {
	return nil, errDown
}

// flakySessions is a working store until down is set.
type flakySessions struct {
	*memory.SessionRepository
	down bool
}

func (f *flakySessions) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	if f.down {
		return nil, errDown
	}
	return f.SessionRepository.FindByID(ctx, id)
}

func (f *flakySessions) Update(ctx context.Context, id string, update entity.SessionUpdate) (*entity.Session, error) {
	if f.down {
		return nil, errDown
	}
	return f.SessionRepository.Update(ctx, id, update)
}

type downLogs struct{}

func (downLogs) Create(context.Context, *entity.MedicationLog) error { return errDown }
func (downLogs) FindAll(context.Context, ...specification.Specification) ([]*entity.MedicationLog, error) {
	return nil, errDown
}
func (downLogs) Count(context.Context, ...specification.Specification) (int64, error) {
	return 0, errDown
}

func TestSessionFallbackPerOperation(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(downSessions{}, memory.NewSessionRepository(time.Hour), logger.NewNopLogger())
	assert.True(t, repo.Durable())

	require.NoError(t, repo.Create(ctx, &entity.Session{SessionId: "s1", LastMode: temporal.ModeAuto}))

	got, err := repo.FindByID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)

	mode := temporal.ModeFuture
	updated, err := repo.Update(ctx, "s1", entity.SessionUpdate{LastMode: &mode})
	require.NoError(t, err)
	assert.Equal(t, temporal.ModeFuture, updated.LastMode)

	assert.ErrorIs(t, repo.Create(ctx, &entity.Session{SessionId: "s1"}), contract.ErrSessionExists)
}

func TestSessionMemoryOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(nil, memory.NewSessionRepository(time.Hour), logger.NewNopLogger())
	assert.False(t, repo.Durable())

	got, err := repo.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMedicationFallbackMergesMemory(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewMedicationLogRepository(time.Hour)
	repo := NewMedicationLogRepository(downLogs{}, mem, logger.NewNopLogger())

	require.NoError(t, repo.Create(ctx, &entity.MedicationLog{LogId: "a", SessionId: "s1", Medication: "Aspirin"}))

	logs, err := repo.FindAll(ctx, specification.BySessionID{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	count, err := repo.Count(ctx, specification.BySessionID{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSessionOutageAfterDurableCreate(t *testing.T) {
	ctx := context.Background()
	durable := &flakySessions{SessionRepository: memory.NewSessionRepository(time.Hour)}
	repo := NewSessionRepository(durable, memory.NewSessionRepository(time.Hour), logger.NewNopLogger())

	require.NoError(t, repo.Create(ctx, &entity.Session{SessionId: "s1", LastMode: temporal.ModeAuto}))
	durable.down = true

	mode := temporal.ModeFuture
	updated, err := repo.Update(ctx, "s1", entity.SessionUpdate{
		LastMode: &mode,
		Signal:   &temporal.Signal{Type: temporal.SignalTranscript, Data: "start metformin"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, temporal.ModeFuture, updated.LastMode)
	require.Len(t, updated.Signals, 1)

	got, err := repo.FindByID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, temporal.ModeFuture, got.LastMode)
}

func TestSessionOutageUnknownToMemory(t *testing.T) {
	ctx := context.Background()
	durable := &flakySessions{SessionRepository: memory.NewSessionRepository(time.Hour)}
	require.NoError(t, durable.Create(ctx, &entity.Session{SessionId: "s1"}))
	durable.down = true

	repo := NewSessionRepository(durable, memory.NewSessionRepository(time.Hour), logger.NewNopLogger())

	mode := temporal.ModePast
	_, err := repo.Update(ctx, "s1", entity.SessionUpdate{LastMode: &mode})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = repo.FindByID(ctx, "s1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
