package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/internal/checkout"
	"github.com/agroworld/storefront/internal/otp"
	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

type memoryPersister struct {
	mu   sync.Mutex
	docs map[string][]byte
	err  error
}

func newMemoryPersister() *memoryPersister {
	return &memoryPersister{docs: map[string][]byte{}}
}

func (m *memoryPersister) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (m *memoryPersister) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryPersister) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

func newTestContainer(t *testing.T, p Persister) *Container {
	t.Helper()
	c, err := NewContainer(p)
	require.NoError(t, err)
	return c
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func sampleCart(t *testing.T) cart.State {
	t.Helper()
	s, err := cart.NewState().AddPackage(cart.PackageLine{
		ID:       "pkg-1",
		Name:     "Vegetable Box",
		Price:    decimal.RequireFromString("1500"),
		Quantity: 2,
	})
	require.NoError(t, err)
	s, err = s.AddItem(cart.LineItem{
		ID:          "item-1",
		Name:        "Carrot",
		Bucket:      "Vegetables",
		Unit:        enums.UnitGram,
		Quantity:    decimal.RequireFromString("500"),
		NormalPrice: decimal.RequireFromString("400"),
		Discount:    decimal.RequireFromString("40"),
	})
	require.NoError(t, err)
	return s.SetCartID("cart-1")
}

func TestNewContainerRequiresPersister(t *testing.T) {
	t.Parallel()

	_, err := NewContainer(nil)
	require.Error(t, err)
}

func TestLoadMissingSessionIsEmpty(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, newMemoryPersister())
	snap, err := c.Load(context.Background(), "sess")
	require.NoError(t, err)
	require.Nil(t, snap.Auth)
	require.True(t, snap.Cart.IsEmpty())
	require.True(t, snap.Cart.Summary.FinalTotal.IsZero())
}

func TestLoadRequiresSessionID(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, newMemoryPersister())
	_, err := c.Load(context.Background(), "  ")
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestSaveAndLoadRoundTripsSlices(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer(t, newMemoryPersister())
	lat := 6.9271
	details := checkout.Details{
		DeliveryMethod: enums.DeliveryMethodPickup,
		FullName:       "Nimal Perera",
		PhoneCode1:     "+94",
		Phone1:         "771234567",
		DeliveryDate:   "2025-03-14",
		CenterID:       "center-2",
		GeoLatitude:    &lat,
	}
	loggedIn := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, c.SaveCart(ctx, "sess", sampleCart(t)))
	require.NoError(t, c.SaveCheckout(ctx, "sess", details))
	require.NoError(t, c.SaveAuth(ctx, "sess", Auth{UserID: "user-1", Name: "Nimal", LoggedInAt: loggedIn}))

	snap, err := c.Load(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, "user-1", snap.Auth.UserID)
	require.True(t, loggedIn.Equal(snap.Auth.LoggedInAt))
	require.Equal(t, "cart-1", snap.Cart.CartID)
	require.Len(t, snap.Cart.Packages, 1)
	require.Len(t, snap.Cart.Items, 1)
	require.True(t, snap.Cart.Summary.GrandTotal.Equal(sampleCart(t).Summary.GrandTotal))
	require.Equal(t, details.CenterID, snap.Checkout.CenterID)
	require.NotNil(t, snap.Checkout.GeoLatitude)
	require.InDelta(t, lat, *snap.Checkout.GeoLatitude, 1e-9)
}

func TestLoadRecomputesStoredSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer(t, newMemoryPersister())
	tampered := sampleCart(t)
	want := tampered.Summary.FinalTotal
	tampered.Summary.FinalTotal = decimal.RequireFromString("1")
	require.NoError(t, c.SaveCart(ctx, "sess", tampered))

	got, err := c.Cart(ctx, "sess")
	require.NoError(t, err)
	require.True(t, got.Summary.FinalTotal.Equal(want), "expected %s, got %s", want, got.Summary.FinalTotal)
}

func TestLoadCorruptDocumentFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	p := newMemoryPersister()
	p.docs["session:sess"] = []byte("{not json")
	c := newTestContainer(t, p)

	snap, err := c.Load(context.Background(), "sess")
	require.NoError(t, err)
	require.True(t, snap.Cart.IsEmpty())
}

func TestLoadPersisterFailureIsDependencyError(t *testing.T) {
	t.Parallel()

	p := newMemoryPersister()
	p.err = errors.New("connection refused")
	c := newTestContainer(t, p)

	_, err := c.Load(context.Background(), "sess")
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestUpdateDoesNotSaveWhenFnFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newMemoryPersister()
	c := newTestContainer(t, p)

	_, err := c.Update(ctx, "sess", func(snap *Snapshot) error {
		snap.Cart = sampleCart(t)
		return pkgerrors.New(pkgerrors.CodeValidation, "nope")
	})
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Empty(t, p.docs)
}

func TestUpdateLastWriteWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer(t, newMemoryPersister())
	require.NoError(t, c.SaveCheckout(ctx, "sess", checkout.Details{FullName: "first"}))
	require.NoError(t, c.SaveCheckout(ctx, "sess", checkout.Details{FullName: "second"}))

	d, err := c.Checkout(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, "second", d.FullName)
}

func TestClearDropsSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer(t, newMemoryPersister())
	require.NoError(t, c.SaveCart(ctx, "sess", sampleCart(t)))
	require.NoError(t, c.Clear(ctx, "sess"))

	a, err := c.Auth(ctx, "sess")
	require.NoError(t, err)
	require.Nil(t, a)
	s, err := c.Cart(ctx, "sess")
	require.NoError(t, err)
	require.True(t, s.IsEmpty())
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer(t, newMemoryPersister())
	require.NoError(t, c.SaveCart(ctx, "a", sampleCart(t)))

	s, err := c.Cart(ctx, "b")
	require.NoError(t, err)
	require.True(t, s.IsEmpty())
}

func TestFlowRoundTripAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestContainer(t, newMemoryPersister())

	_, err := c.Flow(ctx, "flow-1")
	requireCode(t, err, pkgerrors.CodeNotFound)

	flow := otp.NewFlow("flow-1", enums.OTPPurposeSignup, "+94771234567")
	flow.Data = []byte(`{"email":"nimal@example.com"}`)
	sent, err := flow.MarkSent("ref-1", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, c.SaveFlow(ctx, sent))

	got, err := c.Flow(ctx, "flow-1")
	require.NoError(t, err)
	require.Equal(t, enums.OTPStateSent, got.State)
	require.Equal(t, "ref-1", got.ReferenceID)
	require.JSONEq(t, `{"email":"nimal@example.com"}`, string(got.Data))

	require.NoError(t, c.DeleteFlow(ctx, "flow-1"))
	_, err = c.Flow(ctx, "flow-1")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestFlowRequiresID(t *testing.T) {
	t.Parallel()

	c := newTestContainer(t, newMemoryPersister())
	_, err := c.Flow(context.Background(), "")
	requireCode(t, err, pkgerrors.CodeValidation)
}

type stubRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubRedis) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *stubRedis) StateKey(parts ...string) string {
	key := "aw:state"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func TestRedisPersister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubRedis()
	p, err := NewRedisPersister(store, time.Hour)
	require.NoError(t, err)

	_, err = p.Get(ctx, "session:sess")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.Put(ctx, "session:sess", []byte(`{"cart":{}}`)))
	require.Equal(t, `{"cart":{}}`, store.values["aw:state:session:sess"])
	require.Equal(t, time.Hour, store.ttls["aw:state:session:sess"])

	raw, err := p.Get(ctx, "session:sess")
	require.NoError(t, err)
	require.Equal(t, `{"cart":{}}`, string(raw))

	require.NoError(t, p.Delete(ctx, "session:sess"))
	_, err = p.Get(ctx, "session:sess")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisPersisterWrapsFailures(t *testing.T) {
	t.Parallel()

	store := newStubRedis()
	store.getErr = errors.New("i/o timeout")
	p, err := NewRedisPersister(store, 0)
	require.NoError(t, err)

	_, err = p.Get(context.Background(), "session:sess")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
