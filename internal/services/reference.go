package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/storage"
)

const (
	categoriesKey     = "categories"
	paymentMethodsKey = "payment_methods"
)

// ReferenceService serves the category and payment method lists used by
// the transaction forms and lets admins extend them.
type ReferenceService struct {
	store          *storage.Store
	categories     *listCache[core.Category]
	paymentMethods *listCache[core.PaymentMethod]
	logger         *applog.Logger
}

// NewReferenceService caches lists for ttl. A zero ttl disables caching.
func NewReferenceService(store *storage.Store, ttl time.Duration, janitor *cache.Janitor, logger *applog.Logger) *ReferenceService {
	s := &ReferenceService{store: store, logger: logger.WithComponent(applog.ComponentReference)}
	if ttl > 0 {
		cats := cache.NewLRU[[]core.Category](1, ttl)
		pms := cache.NewLRU[[]core.PaymentMethod](1, ttl)
		if janitor != nil {
			janitor.Register(cats)
			janitor.Register(pms)
		}
		s.categories = &listCache[core.Category]{cache: cats, key: categoriesKey}
		s.paymentMethods = &listCache[core.PaymentMethod]{cache: pms, key: paymentMethodsKey}
	}
	return s
}

func (s *ReferenceService) Categories(ctx context.Context) ([]core.Category, error) {
	return cachedList(ctx, s.store, s.categories, (*storage.Conn).ListCategories)
}

func (s *ReferenceService) PaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	return cachedList(ctx, s.store, s.paymentMethods, (*storage.Conn).ListPaymentMethods)
}

// AddCategory trims name and inserts it. Empty names are core.ErrEmptyName,
// names already present are core.ErrDuplicateCategoryName.
func (s *ReferenceService) AddCategory(ctx context.Context, name string) (core.Category, error) {
	name, err := core.NormalizeName(name)
	if err != nil {
		return core.Category{}, err
	}
	var cat core.Category
	err = s.store.Do(ctx, func(c *storage.Conn) error {
		cat, err = c.CreateCategory(ctx, name)
		return err
	})
	if errors.Is(err, storage.ErrUniqueViolation) {
		return core.Category{}, core.ErrDuplicateCategoryName
	}
	if err != nil {
		return core.Category{}, err
	}
	s.categories.invalidate()
	s.logger.InfoContext(ctx, "Category added", applog.FieldCategoryID, cat.ID)
	return cat, nil
}

// AddPaymentMethod mirrors AddCategory for payment methods.
func (s *ReferenceService) AddPaymentMethod(ctx context.Context, name string) (core.PaymentMethod, error) {
	name, err := core.NormalizeName(name)
	if err != nil {
		return core.PaymentMethod{}, err
	}
	var pm core.PaymentMethod
	err = s.store.Do(ctx, func(c *storage.Conn) error {
		pm, err = c.CreatePaymentMethod(ctx, name)
		return err
	})
	if errors.Is(err, storage.ErrUniqueViolation) {
		return core.PaymentMethod{}, core.ErrDuplicatePaymentMethodName
	}
	if err != nil {
		return core.PaymentMethod{}, err
	}
	s.paymentMethods.invalidate()
	s.logger.InfoContext(ctx, "Payment method added", "payment_method_id", pm.ID)
	return pm, nil
}

// listCache holds one list under key. Each invalidate bumps gen, and a
// load only stores its result if no invalidate ran since it started, so a
// slow read cannot put back a list older than a committed insert.
// A nil listCache caches nothing.
type listCache[T any] struct {
	mu    sync.Mutex
	gen   uint64
	cache cache.Cache[[]T]
	key   string
}

func (l *listCache[T]) get() (v []T, gen uint64, ok bool) {
	if l == nil {
		return nil, 0, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok = l.cache.Get(l.key)
	return v, l.gen, ok
}

// store keeps v when gen is still current.
func (l *listCache[T]) store(v []T, gen uint64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == l.gen {
		l.cache.Set(l.key, v)
	}
}

func (l *listCache[T]) invalidate() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.cache.Delete(l.key)
}

func cachedList[T any](ctx context.Context, store *storage.Store, c *listCache[T],
	load func(*storage.Conn, context.Context) ([]T, error)) ([]T, error) {
	v, gen, ok := c.get()
	if ok {
		return v, nil
	}
	var out []T
	err := store.Do(ctx, func(conn *storage.Conn) error {
		var err error
		out, err = load(conn, ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.store(out, gen)
	return out, nil
}
