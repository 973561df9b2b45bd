package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/newsletter/internal/domain"
	"github.com/yanizio/newsletter/internal/store"
)

func seed(t *testing.T, st *store.Memory, email string) uuid.UUID {
	t.Helper()
	e, err := domain.ParseSubscriberEmail(email)
	require.NoError(t, err)
	n, err := domain.ParseSubscriberName("reader")
	require.NoError(t, err)
	id, err := st.InsertSubscriber(context.Background(), domain.NewSubscriber{Email: e, Name: n})
	require.NoError(t, err)
	return id
}

func TestTargets(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	first := seed(t, st, "twice@example.com")
	second := seed(t, st, "twice@example.com")
	other := seed(t, st, "once@example.com")

	ids, err := targets(ctx, st, []string{other.String(), "twice@example.com"})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, other, ids[0])
	assert.ElementsMatch(t, []uuid.UUID{first, second}, ids[1:])
}

func TestTargetsErrors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	_, err := targets(ctx, st, []string{"nobody@example.com"})
	assert.ErrorContains(t, err, "no subscriber")

	_, err = targets(ctx, st, []string{"neither"})
	assert.ErrorContains(t, err, "neither a subscriber id nor an email")
}
