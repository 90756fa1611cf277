package service

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
)

func TestReservationScenarioApproveConfirm(t *testing.T) {
	db, mock := newMockDB(t)
	res := newFakeReservations(db)
	pub := &recordingPublisher{}
	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), testEvents(pub))
	ctx := context.Background()

	r, err := svc.Create(ctx, 3, testStore.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, testStore.PartnerID, r.PartnerID)

	mock.ExpectBegin()
	mock.ExpectCommit()
	r, err = svc.Decide(ctx, 9, r.ID, "APPROVED")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, r.Status)
	assert.Regexp(t, `^\d{12}$`, r.ConfirmationCode)

	mock.ExpectBegin()
	mock.ExpectCommit()
	done, err := svc.ConfirmByCode(ctx, 9, r.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.Equal(t, r.ID, done.ID)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{
		queue.EventReservationCreated, queue.EventReservationApproved, queue.EventReservationCompleted,
	}, pub.types())
	assert.Equal(t, "reservation.events", pub.topics[0])
}

func TestCreateTooSoon(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	svc := NewReservationService(newFakeReservations(db), newFakeStores(testStore), fixedClock(), testEvents(pub))

	_, err := svc.Create(context.Background(), 3, testStore.ID, t0.Add(10*time.Minute))
	require.ErrorIs(t, err, ErrInvalidTime)
	assert.Empty(t, pub.types())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUnknownStore(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewReservationService(newFakeReservations(db), newFakeStores(), fixedClock(), nil)
	_, err := svc.Create(context.Background(), 3, 77, t0.Add(time.Hour))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRescheduleApprovedResetsToPending(t *testing.T) {
	db, mock := newMockDB(t)
	res := newFakeReservations(db)
	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), nil)
	approved := pending()
	approved.Status = model.StatusApproved
	approved.ConfirmationCode = "000123000456"
	res.rows[approved.ID] = approved

	mock.ExpectBegin()
	mock.ExpectCommit()
	r, err := svc.Reschedule(context.Background(), 3, approved.ID, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, "000123000456", r.ConfirmationCode)
	assert.Equal(t, t0.Add(24*time.Hour), res.rows[approved.ID].ReservationTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelByStrangerRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	res := newFakeReservations(db)
	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), nil)
	res.rows[1] = pending()

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Cancel(context.Background(), 42, 1)
	require.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, model.StatusPending, res.rows[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideUnknownDecision(t *testing.T) {
	db, mock := newMockDB(t)
	res := newFakeReservations(db)
	res.rows[1] = pending()
	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), nil)

	_, err := svc.Decide(context.Background(), 9, 1, "maybe")
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.Decide(context.Background(), 9, 1, "approved")
	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, model.StatusPending, res.rows[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Two approvals race for the same partner: neither sees the other's code
// during its pre-check, both draw the same candidate before either writes,
// and the unique key rejects the later write.  The loser must end up with a
// different code.
func TestConcurrentApprovalsNeverShareCode(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	res := newFakeReservations(db)
	res.hideCodes = true
	a, b := pending(), pending()
	b.ID = 2
	res.rows[a.ID], res.rows[b.ID] = a, b

	// Hold both first writes until both candidates are drawn.
	var drawn sync.WaitGroup
	drawn.Add(2)
	var writes atomic.Int32
	res.beforeUpdate = func() {
		if writes.Add(1) <= 2 {
			drawn.Done()
			drawn.Wait()
		}
	}

	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), nil).
		WithCodeGenerator(CodeGenerator{Rand: &lockedReader{r: codeBytes(1, 1, 1, 1, 5, 5)}})

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	ids := []uint64{a.ID, b.ID}
	got := make([]model.Reservation, len(ids))
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = svc.Decide(context.Background(), 9, id, "APPROVED")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"000001000001", "000005000005"},
		[]string{got[0].ConfirmationCode, got[1].ConfirmationCode})
	assert.NotEqual(t, res.rows[1].ConfirmationCode, res.rows[2].ConfirmationCode)
	assert.Equal(t, int32(3), writes.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmByCodeUnknown(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewReservationService(newFakeReservations(db), newFakeStores(testStore), fixedClock(), nil)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.ConfirmByCode(context.Background(), 9, "999999999999")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmByCodeIsScopedToPartner(t *testing.T) {
	db, mock := newMockDB(t)
	res := newFakeReservations(db)
	r := pending()
	r.Status = model.StatusApproved
	r.ConfirmationCode = "111111222222"
	res.rows[r.ID] = r
	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), nil)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.ConfirmByCode(context.Background(), 10, "111111222222")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailVisibility(t *testing.T) {
	db, _ := newMockDB(t)
	res := newFakeReservations(db)
	res.rows[1] = pending()
	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), nil)
	ctx := context.Background()

	_, err := svc.Detail(ctx, 3, 1)
	require.NoError(t, err)
	_, err = svc.Detail(ctx, 9, 1)
	require.NoError(t, err)
	_, err = svc.Detail(ctx, 5, 1)
	require.ErrorIs(t, err, ErrAccessDenied)
	_, err = svc.Detail(ctx, 3, 2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmationQR(t *testing.T) {
	db, _ := newMockDB(t)
	res := newFakeReservations(db)
	res.rows[1] = pending()
	withCode := pending()
	withCode.ID = 2
	withCode.Status = model.StatusApproved
	withCode.ConfirmationCode = "123123456456"
	res.rows[2] = withCode
	svc := NewReservationService(res, newFakeStores(testStore), fixedClock(), nil)
	ctx := context.Background()

	_, err := svc.ConfirmationQR(ctx, 3, 1)
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.ConfirmationQR(ctx, 9, 2)
	require.ErrorIs(t, err, ErrAccessDenied)

	png, err := svc.ConfirmationQR(ctx, 3, 2)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
