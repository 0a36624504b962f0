package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/tradebook/internal/actor"
	"github.com/smallbiznis/tradebook/internal/cutoff/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/internal/testing/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentOnFreshInstallIsOpen(t *testing.T) {
	s := stack.New(t)

	snap, err := s.Cutoff.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.IsClosed)
	assert.Equal(t, domain.StateOpen, snap.State)
	assert.Zero(t, snap.Version)
}

func TestCloseThenOpenCycle(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()

	closed, err := s.Cutoff.Close(ctx, stack.Clerk)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)
	assert.Equal(t, "clerk", closed.ClosedBy)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(stack.Start))
	assert.EqualValues(t, 1, closed.Version)

	_, err = s.Cutoff.Close(ctx, stack.Clerk)
	require.ErrorIs(t, err, domain.ErrWindowNotOpen)
	assert.True(t, errs.IsInvalidState(err))

	s.Clock.Advance(2 * time.Hour)
	opened, err := s.Cutoff.Open(ctx, stack.Clerk)
	require.NoError(t, err)
	assert.False(t, opened.IsClosed)
	assert.Nil(t, opened.ClosedAt)
	assert.True(t, opened.WindowStart.Equal(stack.Start.Add(2*time.Hour)))
	assert.EqualValues(t, 2, opened.Version)

	history, err := s.Cutoff.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	actions := []domain.Action{history[0].Action, history[1].Action}
	assert.ElementsMatch(t, []domain.Action{domain.ActionClose, domain.ActionOpen}, actions)
}

func TestResetReopensFromAnyState(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()

	_, err := s.Cutoff.Reset(ctx, stack.Clerk)
	require.NoError(t, err)
	_, err = s.Cutoff.Close(ctx, stack.Clerk)
	require.NoError(t, err)

	s.Clock.Advance(time.Minute)
	snap, err := s.Cutoff.Reset(ctx, actor.System)
	require.NoError(t, err)
	assert.False(t, snap.IsClosed)
	assert.True(t, snap.WindowStart.Equal(stack.Start.Add(time.Minute)))
}

func TestTransitionRequiresActor(t *testing.T) {
	s := stack.New(t)

	_, err := s.Cutoff.Close(context.Background(), actor.Actor{})
	require.ErrorIs(t, err, domain.ErrInvalidActor)
}
