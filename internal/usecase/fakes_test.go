package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/provider/paypal"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore is an in-memory database. Writes are visible at once and Do keeps
// an undo log to roll back a failed unit of work. Row locks are taken by the
// ForUpdate lookups and by updates, and held until Do returns, like
// SELECT ... FOR UPDATE inside a transaction. Nothing else serializes units
// of work.
type memStore struct {
	mu       sync.Mutex
	rowLocks map[string]*sync.Mutex

	users    map[uuid.UUID]entity.User
	services map[uuid.UUID]entity.Service
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
	reviews  map[uuid.UUID]entity.Review

	failBookingUpdate error

	// afterConflictCheck runs once FindCleanerConflict has its answer.
	afterConflictCheck func()
}

func newMemStore() *memStore {
	return &memStore{
		rowLocks: make(map[string]*sync.Mutex),
		users:    make(map[uuid.UUID]entity.User),
		services: make(map[uuid.UUID]entity.Service),
		bookings: make(map[uuid.UUID]entity.Booking),
		payments: make(map[uuid.UUID]entity.Payment),
		reviews:  make(map[uuid.UUID]entity.Review),
	}
}

type memTxKey struct{}

// memTx is owned by the goroutine running the unit of work.
type memTx struct {
	held map[string]*sync.Mutex
	undo []func()
}

func txFrom(ctx context.Context) (*memTx, bool) {
	tx, ok := ctx.Value(memTxKey{}).(*memTx)
	return tx, ok
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	tx := &memTx{held: make(map[string]*sync.Mutex)}
	defer func() {
		for _, m := range tx.held {
			m.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// lockRow blocks until the row is free and keeps it until the unit of work
// ends. Outside Do it is a no-op. Callers must not hold s.mu.
func (s *memStore) lockRow(ctx context.Context, table string, id uuid.UUID) {
	tx, ok := txFrom(ctx)
	if !ok {
		return
	}
	key := table + ":" + id.String()
	if _, held := tx.held[key]; held {
		return
	}

	s.mu.Lock()
	m, ok := s.rowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[key] = m
	}
	s.mu.Unlock()

	m.Lock()
	tx.held[key] = m
}

// track records how to undo a write of m[k]. Callers hold s.mu.
func track[K comparable, V any](ctx context.Context, m map[K]V, k K) {
	tx, ok := txFrom(ctx)
	if !ok {
		return
	}
	prev, existed := m[k]
	tx.undo = append(tx.undo, func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// rendezvous lets up to n goroutines wait for each other, but never longer
// than wait.
type rendezvous struct {
	mu      sync.Mutex
	n       int
	arrived int
	all     chan struct{}
	wait    time.Duration
}

func newRendezvous(n int, wait time.Duration) *rendezvous {
	return &rendezvous{n: n, all: make(chan struct{}), wait: wait}
}

func (r *rendezvous) arrive() {
	r.mu.Lock()
	r.arrived++
	if r.arrived == r.n {
		close(r.all)
	}
	r.mu.Unlock()

	select {
	case <-r.all:
	case <-time.After(r.wait):
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:    &memUserRepo{s},
		Service: &memServiceRepo{s},
		Booking: &memBookingRepo{s},
		Payment: &memPaymentRepo{s},
		Review:  &memReviewRepo{s},
	}
}

func (s *memStore) booking(id uuid.UUID) *entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookings[id]
	return &b
}

func (s *memStore) payment(id uuid.UUID) (entity.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	return p, ok
}

func (s *memStore) paymentsOf(bookingID uuid.UUID) []entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out
}

// ---------- users ----------

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	track(ctx, r.s.users, user.ID)
	r.s.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memUserRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.lockRow(ctx, "users", id)
	return r.FindByID(ctx, id)
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	r.s.lockRow(ctx, "users", id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return errors.New("no rows")
	}
	track(ctx, r.s.users, id)
	u.IsActive = active
	u.UpdatedAt = now
	r.s.users[id] = u
	return nil
}

// ---------- services ----------

type memServiceRepo struct{ s *memStore }

func (r *memServiceRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	svc, ok := r.s.services[id]
	if !ok {
		return nil, nil
	}
	return &svc, nil
}

func (r *memServiceRepo) FindAll(context.Context) ([]*entity.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Service
	for _, svc := range r.s.services {
		if svc.DeletedAt == nil {
			svc := svc
			out = append(out, &svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------- bookings ----------

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) withReview(b entity.Booking) *entity.Booking {
	_, b.HasReview = r.reviewOf(b.ID)
	return &b
}

func (r *memBookingRepo) reviewOf(bookingID uuid.UUID) (entity.Review, bool) {
	for _, rv := range r.s.reviews {
		if rv.BookingID == bookingID {
			return rv, true
		}
	}
	return entity.Review{}, false
}

func (r *memBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	track(ctx, r.s.bookings, booking.ID)
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return r.withReview(b), nil
}

func (r *memBookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.lockRow(ctx, "bookings", id)
	return r.FindByID(ctx, id)
}

func (r *memBookingRepo) List(_ context.Context, f repository.BookingFilter) ([]*entity.Booking, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var all []*entity.Booking
	for _, b := range r.s.bookings {
		if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
			continue
		}
		if f.CleanerID != nil && !b.IsAssignedTo(*f.CleanerID) {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		all = append(all, r.withReview(b))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	total := int64(len(all))
	if f.Offset >= len(all) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], total, nil
}

func (r *memBookingRepo) Update(ctx context.Context, booking *entity.Booking) error {
	r.s.lockRow(ctx, "bookings", booking.ID)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failBookingUpdate != nil {
		return r.s.failBookingUpdate
	}
	if _, ok := r.s.bookings[booking.ID]; !ok {
		return errors.New("no rows")
	}
	track(ctx, r.s.bookings, booking.ID)
	b := *booking
	b.HasReview = false
	r.s.bookings[booking.ID] = b
	return nil
}

func (r *memBookingRepo) FindCleanerConflict(_ context.Context, cleanerID, excludeID uuid.UUID, start, end time.Time) (*entity.Booking, error) {
	conflict := r.findConflict(cleanerID, excludeID, start, end)
	if r.s.afterConflictCheck != nil {
		r.s.afterConflictCheck()
	}
	return conflict, nil
}

func (r *memBookingRepo) findConflict(cleanerID, excludeID uuid.UUID, start, end time.Time) *entity.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	candidate := &entity.Booking{Date: start, EndTime: end}
	for _, b := range r.s.bookings {
		if b.ID == excludeID || !b.IsAssignedTo(cleanerID) || !b.Blocking() {
			continue
		}
		if b.Overlaps(candidate) {
			return r.withReview(b)
		}
	}
	return nil
}

func (r *memBookingRepo) CompleteAssigned(ctx context.Context, bookingID, cleanerID uuid.UUID, now time.Time) (bool, error) {
	r.s.lockRow(ctx, "bookings", bookingID)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[bookingID]
	if !ok || !b.IsAssignedTo(cleanerID) || b.Status != entity.BookingStatusConfirmed {
		return false, nil
	}
	track(ctx, r.s.bookings, bookingID)
	b.Status = entity.BookingStatusCompleted
	b.UpdatedAt = now
	r.s.bookings[bookingID] = b
	return true, nil
}

func (r *memBookingRepo) CancelFutureByCleaner(ctx context.Context, cleanerID uuid.UUID, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.bookings {
		if !b.IsAssignedTo(cleanerID) || !b.Blocking() || !b.Date.After(now) {
			continue
		}
		track(ctx, r.s.bookings, id)
		reason := entity.ReasonCleanerDeactivated
		b.Status = entity.BookingStatusCanceled
		b.CancellationReason = &reason
		b.UpdatedAt = now
		r.s.bookings[id] = b
		n++
	}
	return n, nil
}

// ---------- payments ----------

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.BookingID == payment.BookingID && p.Status != entity.PaymentStatusFailed {
			return repository.ErrDuplicate
		}
	}
	track(ctx, r.s.payments, payment.ID)
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPaymentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	r.s.lockRow(ctx, "payments", id)
	return r.FindByID(ctx, id)
}

func (r *memPaymentRepo) FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	latest := r.latestOf(bookingID)
	if latest == nil {
		return nil, nil
	}
	return r.FindByIDForUpdate(ctx, latest.ID)
}

func (r *memPaymentRepo) latestOf(bookingID uuid.UUID) *entity.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *entity.Payment
	for _, p := range r.s.payments {
		if p.BookingID != bookingID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			p := p
			latest = &p
		}
	}
	return latest
}

func (r *memPaymentRepo) FindByTransactionID(_ context.Context, transactionID string) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) Update(ctx context.Context, payment *entity.Payment) error {
	r.s.lockRow(ctx, "payments", payment.ID)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.ID]; !ok {
		return errors.New("no rows")
	}
	track(ctx, r.s.payments, payment.ID)
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.lockRow(ctx, "payments", id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	track(ctx, r.s.payments, id)
	delete(r.s.payments, id)
	return nil
}

// ---------- reviews ----------

type memReviewRepo struct{ s *memStore }

func (r *memReviewRepo) Create(ctx context.Context, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.BookingID == review.BookingID {
			return repository.ErrDuplicate
		}
	}
	track(ctx, r.s.reviews, review.ID)
	r.s.reviews[review.ID] = *review
	return nil
}

func (r *memReviewRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.BookingID == bookingID {
			return &rv, nil
		}
	}
	return nil, nil
}

// ---------- provider & publisher ----------

type fakeProvider struct {
	mu         sync.Mutex
	createErr  error
	captureErr error
	refundErr  error
	created    []paypal.OrderRequest
	captured   []string
	refunded   []string
}

func (p *fakeProvider) CreateOrder(_ context.Context, req paypal.OrderRequest) (*paypal.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, req)
	if p.createErr != nil {
		return nil, p.createErr
	}
	id := "ORDER-" + req.ReferenceID[:8]
	return &paypal.Order{
		ID:          id,
		Status:      "CREATED",
		ApprovalURL: "https://paypal.test/approve?token=" + id,
		Raw:         json.RawMessage(`{"id":"` + id + `","status":"CREATED"}`),
	}, nil
}

func (p *fakeProvider) CaptureOrder(_ context.Context, orderID string) (*paypal.Capture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captured = append(p.captured, orderID)
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	return &paypal.Capture{
		OrderID:   orderID,
		CaptureID: "CAP-" + orderID,
		Status:    "COMPLETED",
		Raw:       json.RawMessage(`{"status":"COMPLETED"}`),
	}, nil
}

func (p *fakeProvider) RefundCapture(_ context.Context, captureID string, _ float64, _ string) (*paypal.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunded = append(p.refunded, captureID)
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	return &paypal.Refund{ID: "REF-1", Status: "COMPLETED", Raw: json.RawMessage(`{"id":"REF-1"}`)}, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// ---------- fixture ----------

// fixedNow is a Saturday morning; tests book on the following days.
var fixedNow = time.Date(2025, 5, 31, 9, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	store    *memStore
	provider *fakeProvider
	pub      *recordingPublisher
	config   *utils.Config

	booking *bookingService
	payment *paymentService
	review  *reviewService
	user    *userService

	customer Actor
	other    Actor
	admin    Actor
	cleaner  Actor

	twoHour *entity.Service
}

func newFixture() *fixture {
	store := newMemStore()
	provider := &fakeProvider{}
	pub := &recordingPublisher{}
	config := &utils.Config{
		Booking:  utils.BookingConfig{OpenHour: 8, CloseHour: 20},
		Currency: utils.CurrencyConfig{Local: "MAD", Settlement: "USD", SettlementRate: 0.1},
		PayPal: utils.PayPalConfig{
			ReturnURL: "http://localhost:8080/api/payment/paypal/capture",
			CancelURL: "http://localhost:8080/api/payment/paypal/cancel",
		},
	}
	repo := store.repository()
	log := zap.NewNop()

	f := &fixture{
		store:    store,
		provider: provider,
		pub:      pub,
		config:   config,
	}
	f.booking = NewBookingService(repo, store, pub, config.Booking, log).(*bookingService)
	f.booking.now = func() time.Time { return fixedNow }
	f.payment = NewPaymentService(repo, store, provider, pub, config, log).(*paymentService)
	f.payment.now = func() time.Time { return fixedNow }
	f.review = NewReviewService(repo, store, log).(*reviewService)
	f.review.now = func() time.Time { return fixedNow }
	f.user = NewUserService(repo.User, f.booking, log).(*userService)
	f.user.now = func() time.Time { return fixedNow }

	f.customer = f.addUser(entity.RoleCustomer, true)
	f.other = f.addUser(entity.RoleCustomer, true)
	f.admin = f.addUser(entity.RoleAdmin, true)
	f.cleaner = f.addUser(entity.RoleCleaner, true)
	f.twoHour = f.addService("Standard clean", 150, 2)

	return f
}

func (f *fixture) addUser(role entity.UserRole, active bool) Actor {
	id := uuid.New()
	f.store.users[id] = entity.User{
		BaseNoDelete: entity.BaseNoDelete{ID: id, CreatedAt: fixedNow, UpdatedAt: fixedNow},
		Name:         string(role),
		Email:        id.String() + "@example.test",
		Role:         role,
		IsActive:     active,
	}
	return Actor{ID: id, Role: role}
}

func (f *fixture) addService(name string, price, hours float64) *entity.Service {
	svc := entity.Service{
		Base:              entity.Base{ID: uuid.New(), CreatedAt: fixedNow, UpdatedAt: fixedNow},
		Name:              name,
		BasePrice:         price,
		EstimatedDuration: hours,
	}
	f.store.services[svc.ID] = svc
	return &svc
}

// addBooking stores a booking directly, bypassing validation.
func (f *fixture) addBooking(customer Actor, svc *entity.Service, start time.Time, status entity.BookingStatus, cleaner *Actor) uuid.UUID {
	b := entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: fixedNow, UpdatedAt: fixedNow},
		CustomerID:   customer.ID,
		ServiceID:    svc.ID,
		Date:         start,
		Location:     "12 Rue Atlas, Rabat",
		Status:       status,
	}
	_ = b.RefreshEndTime(svc.EstimatedDuration)
	if cleaner != nil {
		id := cleaner.ID
		b.CleanerID = &id
	}
	f.store.bookings[b.ID] = b
	return b.ID
}
