package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
)

func TestSweepOnceMarksLapsedAndIsIdempotent(t *testing.T) {
	db, _ := newMockDB(t)
	res := newFakeReservations(db)
	at := func(id uint64, st model.ReservationStatus, d time.Duration) {
		r := pending()
		r.ID, r.Status, r.ReservationTime = id, st, t0.Add(d)
		res.rows[id] = r
	}
	at(1, model.StatusPending, 5*time.Minute)     // inside grace
	at(2, model.StatusApproved, -time.Hour)       // already past
	at(3, model.StatusPending, time.Hour)         // still ahead
	at(4, model.StatusCancelled, -time.Hour)      // terminal
	at(5, model.StatusApproved, 10*time.Minute)   // exactly at threshold

	pub := &recordingPublisher{}
	s := NewSweeper(res, fixedClock(), time.Minute, OverdueGrace, testEvents(pub))

	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, model.StatusOverdue, res.rows[1].Status)
	assert.Equal(t, model.StatusOverdue, res.rows[2].Status)
	assert.Equal(t, model.StatusPending, res.rows[3].Status)
	assert.Equal(t, model.StatusCancelled, res.rows[4].Status)
	assert.Equal(t, model.StatusApproved, res.rows[5].Status)

	n, err = s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, pub.msgs, 1)
	ev := pub.msgs[0].(queue.ReservationEvent)
	assert.Equal(t, queue.EventReservationOverdue, ev.Type)
	assert.Equal(t, int64(2), ev.Affected)
}

type countingMarker struct {
	calls atomic.Int32
	err   error
	hit   chan struct{}
}

func (m *countingMarker) MarkOverdue(context.Context, time.Time, time.Time) (int64, error) {
	if m.calls.Add(1) == 3 {
		close(m.hit)
	}
	return 0, m.err
}

func TestSweeperRunSurvivesFailures(t *testing.T) {
	m := &countingMarker{err: errors.New("db down"), hit: make(chan struct{})}
	s := NewSweeper(m, fixedClock(), 5*time.Millisecond, OverdueGrace, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-m.hit:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper stopped ticking after a failure")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweepOnceReportsError(t *testing.T) {
	m := &countingMarker{err: errors.New("db down"), hit: make(chan struct{})}
	s := NewSweeper(m, fixedClock(), 0, OverdueGrace, nil)
	_, err := s.SweepOnce(context.Background())
	require.Error(t, err)
}
