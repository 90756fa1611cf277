package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/clock"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

var t0 = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// codeBytes feeds rand.Int so that each 6-digit segment equals the given
// value (values must stay below 0x0fffff).
func codeBytes(segments ...int) *bytes.Reader {
	var b []byte
	for _, v := range segments {
		b = append(b, byte(v>>16), byte(v>>8), byte(v))
	}
	return bytes.NewReader(b)
}

// lockedReader serialises reads so concurrent code draws take whole
// segments.
type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}

type fakeReservations struct {
	mu           sync.Mutex
	db           *sql.DB
	rows         map[uint64]model.Reservation
	nextID       uint64
	hideCodes    bool   // CodeExistsTx sees nothing, as if rivals had not committed
	beforeUpdate func() // runs outside the lock at the start of UpdateTx
	lastQuery    repository.ReservationFilter
}

func newFakeReservations(db *sql.DB) *fakeReservations {
	return &fakeReservations{db: db, rows: map[uint64]model.Reservation{}}
}

func (f *fakeReservations) DB() *sql.DB { return f.db }

func (f *fakeReservations) Create(_ context.Context, r *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeReservations) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return model.Reservation{}, sql.ErrNoRows
	}
	return r, nil
}

func (f *fakeReservations) GetForUpdateTx(ctx context.Context, _ *sql.Tx, id uint64) (model.Reservation, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeReservations) GetByCodeForUpdateTx(_ context.Context, _ *sql.Tx, partnerID uint64, code string) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.PartnerID == partnerID && r.ConfirmationCode == code {
			return r, nil
		}
	}
	return model.Reservation{}, sql.ErrNoRows
}

func (f *fakeReservations) CodeExistsTx(_ context.Context, _ *sql.Tx, partnerID uint64, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideCodes {
		return false, nil
	}
	for _, r := range f.rows {
		if r.PartnerID == partnerID && r.ConfirmationCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReservations) UpdateTx(_ context.Context, _ *sql.Tx, r model.Reservation) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ConfirmationCode != "" {
		for id, o := range f.rows {
			if id != r.ID && o.PartnerID == r.PartnerID && o.ConfirmationCode == r.ConfirmationCode {
				return repository.ErrDuplicate
			}
		}
	}
	f.rows[r.ID] = r
	return nil
}

func (f *fakeReservations) Search(_ context.Context, q repository.ReservationFilter) ([]model.Reservation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	var out []model.Reservation
	for _, r := range f.rows {
		if q.StoreID != 0 && r.StoreID != q.StoreID {
			continue
		}
		if q.UserID != 0 && r.UserID != q.UserID {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeReservations) MarkOverdue(_ context.Context, threshold, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.rows {
		if r.Status.IsActive() && r.ReservationTime.Before(threshold) {
			r.Status = model.StatusOverdue
			r.UpdatedAt = now
			f.rows[id] = r
			n++
		}
	}
	return n, nil
}

type fakeStores struct {
	mu        sync.Mutex
	rows      map[uint64]model.Store
	nextID    uint64
	deleteErr error
}

func newFakeStores(stores ...model.Store) *fakeStores {
	f := &fakeStores{rows: map[uint64]model.Store{}}
	for _, s := range stores {
		f.rows[s.ID] = s
		if s.ID > f.nextID {
			f.nextID = s.ID
		}
	}
	return f
}

func (f *fakeStores) Create(_ context.Context, s *model.Store) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	f.rows[s.ID] = *s
	return nil
}

func (f *fakeStores) GetByID(_ context.Context, id uint64) (model.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return model.Store{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStores) GetForUpdateTx(ctx context.Context, _ *sql.Tx, id uint64) (model.Store, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeStores) UpdateRatingTx(_ context.Context, _ *sql.Tx, id uint64, rating float64, reviews int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.rows[id]
	s.Rating, s.Reviews = rating, reviews
	f.rows[id] = s
	return nil
}

func (f *fakeStores) ExistsByName(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.rows {
		if s.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStores) UpdateDetails(_ context.Context, s model.Store) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.ID] = s
	return nil
}

func (f *fakeStores) Delete(_ context.Context, id uint64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeStores) List(_ context.Context, q repository.StoreListQuery) ([]model.Store, int64, error) {
	var out []model.Store
	for _, s := range f.rows {
		if s.Rating >= q.MinRating {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

type fakeReviews struct {
	db     *sql.DB
	rows   map[uint64]model.Review
	nextID uint64
}

func newFakeReviews(db *sql.DB) *fakeReviews {
	return &fakeReviews{db: db, rows: map[uint64]model.Review{}}
}

func (f *fakeReviews) DB() *sql.DB { return f.db }

func (f *fakeReviews) CreateTx(_ context.Context, _ *sql.Tx, v *model.Review) error {
	for _, o := range f.rows {
		if o.ReservationID == v.ReservationID {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	v.ID = f.nextID
	f.rows[v.ID] = *v
	return nil
}

func (f *fakeReviews) GetForUpdateTx(_ context.Context, _ *sql.Tx, id uint64) (model.Review, error) {
	v, ok := f.rows[id]
	if !ok {
		return model.Review{}, sql.ErrNoRows
	}
	return v, nil
}

func (f *fakeReviews) UpdateTx(_ context.Context, _ *sql.Tx, v model.Review) error {
	f.rows[v.ID] = v
	return nil
}

func (f *fakeReviews) DeleteTx(_ context.Context, _ *sql.Tx, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeReviews) List(_ context.Context, q repository.ReviewFilter) ([]model.Review, int64, error) {
	var out []model.Review
	for _, v := range f.rows {
		if q.StoreID != 0 && v.StoreID != q.StoreID {
			continue
		}
		if q.UserID != 0 && v.UserID != q.UserID {
			continue
		}
		out = append(out, v)
	}
	return out, int64(len(out)), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []queue.Message
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msg queue.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		switch ev := m.(type) {
		case queue.ReservationEvent:
			out = append(out, ev.Type)
		case queue.ReviewEvent:
			out = append(out, ev.Type)
		}
	}
	return out
}

type mapMirror struct {
	m map[uint64][2]float64
}

func (c *mapMirror) Put(_ context.Context, id uint64, rating float64, reviews int) error {
	if c.m == nil {
		c.m = map[uint64][2]float64{}
	}
	c.m[id] = [2]float64{rating, float64(reviews)}
	return nil
}

func (c *mapMirror) Get(_ context.Context, id uint64) (float64, int, bool, error) {
	v, ok := c.m[id]
	return v[0], int(v[1]), ok, nil
}

func (c *mapMirror) Invalidate(_ context.Context, id uint64) error {
	delete(c.m, id)
	return nil
}

func testEvents(p *recordingPublisher) *Events {
	return &Events{Publisher: p, ReservationTopic: "reservation.events", ReviewTopic: "review.events"}
}

func fixedClock() *clock.Fixed { return clock.NewFixed(t0) }
