package favorites

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "listing-service/internal/domain/listing"
	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/pkg/session"

	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// Backend is the marketplace favorites API.
type Backend interface {
	ListFavoriteIDs(ctx context.Context, cred session.Credential) ([]int64, error)
	AddFavorite(ctx context.Context, cred session.Credential, carID int64) error
	RemoveFavorite(ctx context.Context, cred session.Credential, carID int64) error
}

// Overlay is the favorited car ids of one session. It is read by every
// view of the session and changed only through Toggle.
type Overlay struct {
	backend Backend
	cred    session.Credential
	timeout time.Duration
	logger  *zap.Logger
	onAuth  func(error)

	loadMu sync.Mutex
	loaded bool

	mu          sync.RWMutex
	ids         map[int64]struct{}
	subscribers map[int]func()
	nextSub     int

	carMu    sync.Mutex
	carLocks map[int64]*carLock
}

type carLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Overlay)

// WithAuthFailure registers fn to run when the backend rejects the
// credential.
func WithAuthFailure(fn func(error)) Option {
	return func(o *Overlay) { o.onAuth = fn }
}

func WithTimeout(d time.Duration) Option {
	return func(o *Overlay) { o.timeout = d }
}

func NewOverlay(backend Backend, cred session.Credential, logger *zap.Logger, opts ...Option) *Overlay {
	o := &Overlay{
		backend:     backend,
		cred:        cred,
		timeout:     DefaultTimeout,
		logger:      logger,
		onAuth:      func(error) {},
		ids:         make(map[int64]struct{}),
		subscribers: make(map[int]func()),
		carLocks:    make(map[int64]*carLock),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Overlay) Authenticated() bool {
	return o.cred.Authenticated()
}

// Load fetches the favorites once. Anonymous overlays never call the
// backend. A failed load is retried by the next call.
func (o *Overlay) Load(ctx context.Context) error {
	if !o.cred.Authenticated() {
		return nil
	}

	o.loadMu.Lock()
	defer o.loadMu.Unlock()
	if o.loaded {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	ids, err := o.backend.ListFavoriteIDs(ctx, o.cred)
	if err != nil {
		o.fail(err)
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	o.mu.Lock()
	for _, id := range ids {
		o.ids[id] = struct{}{}
	}
	o.mu.Unlock()
	o.loaded = true

	o.notify()
	return nil
}

func (o *Overlay) Loaded() bool {
	o.loadMu.Lock()
	defer o.loadMu.Unlock()
	return o.loaded || !o.cred.Authenticated()
}

func (o *Overlay) IsFavorited(carID int64) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.ids[carID]
	return ok
}

// IDs returns the favorited ids in ascending order.
func (o *Overlay) IDs() []int64 {
	o.mu.RLock()
	ids := make([]int64, 0, len(o.ids))
	for id := range o.ids {
		ids = append(ids, id)
	}
	o.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Merge decorates items with their favorited flag.
func (o *Overlay) Merge(items []domain.Car) []domain.Row {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rows := make([]domain.Row, len(items))
	for i, car := range items {
		_, fav := o.ids[car.ID]
		rows[i] = domain.Row{Car: car, Favorited: fav}
	}
	return rows
}

// Subscribe registers fn to run after every membership change, optimistic
// flips and reverts included.
func (o *Overlay) Subscribe(fn func()) func() {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subscribers, id)
		o.mu.Unlock()
	}
}

// Toggle flips carID and sends the change upstream. The flip is visible
// immediately and reverted if the request fails. Toggles of the same car
// run one after another.
func (o *Overlay) Toggle(ctx context.Context, carID int64) (bool, error) {
	return o.update(ctx, carID, func(current bool) bool { return !current })
}

// Set makes the membership of carID equal to on. Nothing is sent when it
// already is.
func (o *Overlay) Set(ctx context.Context, carID int64, on bool) error {
	_, err := o.update(ctx, carID, func(bool) bool { return on })
	return err
}

func (o *Overlay) update(ctx context.Context, carID int64, next func(bool) bool) (bool, error) {
	if !o.cred.Authenticated() {
		return false, xerrors.ErrUnauthorized
	}

	lock := o.lockCar(carID)
	defer o.unlockCar(carID, lock)

	current := o.IsFavorited(carID)
	add := next(current)
	if add == current {
		return current, nil
	}
	o.set(carID, add)
	o.notify()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var err error
	if add {
		err = o.backend.AddFavorite(ctx, o.cred, carID)
	} else {
		err = o.backend.RemoveFavorite(ctx, o.cred, carID)
	}
	if err != nil {
		o.set(carID, !add)
		o.notify()
		o.logger.Warn("favorite update failed",
			zap.Int64("car_id", carID),
			zap.Bool("add", add),
			zap.Error(err),
		)
		o.fail(err)
		return !add, fmt.Errorf("failed to update favorite: %w", err)
	}
	return add, nil
}

func (o *Overlay) set(carID int64, on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if on {
		o.ids[carID] = struct{}{}
	} else {
		delete(o.ids, carID)
	}
}

func (o *Overlay) notify() {
	o.mu.RLock()
	subs := make([]func(), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		subs = append(subs, fn)
	}
	o.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}

func (o *Overlay) fail(err error) {
	if xerrors.IsAuth(err) {
		o.onAuth(err)
	}
}

func (o *Overlay) lockCar(carID int64) *carLock {
	o.carMu.Lock()
	l, ok := o.carLocks[carID]
	if !ok {
		l = &carLock{}
		o.carLocks[carID] = l
	}
	l.refs++
	o.carMu.Unlock()

	l.mu.Lock()
	return l
}

func (o *Overlay) unlockCar(carID int64, l *carLock) {
	l.mu.Unlock()

	o.carMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(o.carLocks, carID)
	}
	o.carMu.Unlock()
}
