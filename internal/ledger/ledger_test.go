package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itt1233/augeo/internal/domain"
)

// --- Mocks ---

type skillKey struct {
	userID uuid.UUID
	skill  string
}

type mockSkillStore struct {
	mu     sync.Mutex
	totals map[skillKey]int64
	err    error
}

func newMockSkillStore() *mockSkillStore {
	return &mockSkillStore{totals: make(map[skillKey]int64)}
}

func (m *mockSkillStore) ApplyDelta(ctx context.Context, userID uuid.UUID, skill string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.totals[skillKey{userID, skill}] += delta
	return nil
}

func (m *mockSkillStore) GetExperience(ctx context.Context, userID uuid.UUID, skill string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[skillKey{userID, skill}], nil
}

func (m *mockSkillStore) CountAhead(ctx context.Context, skill string, experience int64, userID uuid.UUID) (int, error) {
	return 0, nil
}

func (m *mockSkillStore) Leaderboard(ctx context.Context, skill string, limit int) ([]domain.SkillStanding, error) {
	return nil, nil
}

// --- Tests ---

func TestApplyCreditsOverallAndSubSkill(t *testing.T) {
	store := newMockSkillStore()
	l := New(store)
	userID := uuid.New()

	require.NoError(t, l.Apply(context.Background(), userID, "Golang", 30))

	total, err := l.Total(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)

	sub, err := l.Experience(context.Background(), userID, "Golang")
	require.NoError(t, err)
	assert.Equal(t, int64(30), sub)
}

func TestApplyOverallOnlyWhenSkillUnset(t *testing.T) {
	store := newMockSkillStore()
	l := New(store)
	userID := uuid.New()

	require.NoError(t, l.Apply(context.Background(), userID, "", 20))
	require.NoError(t, l.Apply(context.Background(), userID, domain.OverallSkill, 10))

	total, err := l.Total(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
	assert.Len(t, store.totals, 1)
}

func TestApplyInverseRestoresTotals(t *testing.T) {
	store := newMockSkillStore()
	l := New(store)
	userID := uuid.New()
	ctx := context.Background()

	require.NoError(t, l.Apply(ctx, userID, "Golang", 55))
	require.NoError(t, l.Apply(ctx, userID, "Golang", -55))

	total, err := l.Total(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, total)

	sub, err := l.Experience(ctx, userID, "Golang")
	require.NoError(t, err)
	assert.Zero(t, sub)
}

func TestApplyZeroDeltaIsNoOp(t *testing.T) {
	store := newMockSkillStore()
	l := New(store)

	require.NoError(t, l.Apply(context.Background(), uuid.New(), "Golang", 0))
	assert.Empty(t, store.totals)
}
