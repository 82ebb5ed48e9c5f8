package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_Analyze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")

	f.create(t, u.ID, "bank", "alice", "Tr0ub4dor&3xyz") // 90, сильный
	f.create(t, u.ID, "mail", "alice", "password")       // утёкший и слабый
	f.create(t, u.ID, "forum", "al", "Password")         // повтор "password" без учёта регистра
	f.create(t, u.ID, "shop", "alice", "MyPassword1!")   // 75, сильный

	rep, err := f.vault.Analyze(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 2, rep.Compromised)
	assert.Equal(t, 2, rep.Weak)
	assert.Equal(t, 2, rep.Strong)
	assert.Equal(t, 1, rep.Reused)
	require.Len(t, rep.ReusedList, 1)
	assert.Equal(t, 2, rep.ReusedList[0].ReuseCount)
	assert.ElementsMatch(t, []string{"mail (alice)", "forum (al)"}, rep.ReusedList[0].UsedIn)
	for _, w := range rep.WeakList {
		assert.NotEmpty(t, w.Issues)
	}
	// 50 - 25 - 15 - 5
	assert.Equal(t, 5, rep.HealthScore)
}

func TestVault_Analyze_Empty(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	rep, err := f.vault.Analyze(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 100, rep.HealthScore)
	assert.NotNil(t, rep.Leaked)
}

func TestVault_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")

	f.create(t, u.ID, "a", "u", "12345678")       // 0
	f.create(t, u.ID, "b", "u", "Tr0ub4dor&3xyz") // 90
	f.create(t, u.ID, "c", "u", "hunter2x")       // 45

	st, err := f.vault.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(1), st.WeakCount)
	assert.Equal(t, 45.0, st.AvgStrength)
}
