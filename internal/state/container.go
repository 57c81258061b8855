package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/internal/checkout"
	"github.com/agroworld/storefront/internal/otp"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

const (
	sessionKeyPrefix = "session"
	flowKeyPrefix    = "otp"
)

// Auth is the persisted profile of the signed-in user.
type Auth struct {
	UserID     string    `json:"user_id"`
	Title      string    `json:"title,omitempty"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Snapshot is everything the storefront keeps for one session.
type Snapshot struct {
	Auth     *Auth            `json:"auth,omitempty"`
	Cart     cart.State       `json:"cart"`
	Checkout checkout.Details `json:"checkout"`
}

// Empty returns a snapshot with an empty cart.
func Empty() Snapshot {
	return Snapshot{Cart: cart.NewState()}
}

// Container loads and saves session snapshots and verification flows.
type Container struct {
	persister Persister
}

// NewContainer wraps the configured persister.
func NewContainer(persister Persister) (*Container, error) {
	if persister == nil {
		return nil, fmt.Errorf("state persister is required")
	}
	return &Container{persister: persister}, nil
}

// Load returns the session snapshot. Missing or unreadable documents load as empty.
func (c *Container) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	raw, err := c.persister.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Empty(), nil
	}
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load session state")
	}

	snap := Empty()
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Empty(), nil
	}
	snap.Cart = snap.Cart.Recompute()
	return snap, nil
}

// Save replaces the session snapshot.
func (c *Container) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session state")
	}
	if err := c.persister.Put(ctx, key, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save session state")
	}
	return nil
}

// Update loads the snapshot, applies fn and saves the result. Nothing is saved when fn fails.
func (c *Container) Update(ctx context.Context, sessionID string, fn func(*Snapshot) error) (Snapshot, error) {
	snap, err := c.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := fn(&snap); err != nil {
		return Snapshot{}, err
	}
	if err := c.Save(ctx, sessionID, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Clear drops the session snapshot.
func (c *Container) Clear(ctx context.Context, sessionID string) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	if err := c.persister.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear session state")
	}
	return nil
}

func (c *Container) Cart(ctx context.Context, sessionID string) (cart.State, error) {
	snap, err := c.Load(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	return snap.Cart, nil
}

func (c *Container) SaveCart(ctx context.Context, sessionID string, s cart.State) error {
	_, err := c.Update(ctx, sessionID, func(snap *Snapshot) error {
		snap.Cart = s
		return nil
	})
	return err
}

func (c *Container) Checkout(ctx context.Context, sessionID string) (checkout.Details, error) {
	snap, err := c.Load(ctx, sessionID)
	if err != nil {
		return checkout.Details{}, err
	}
	return snap.Checkout, nil
}

func (c *Container) SaveCheckout(ctx context.Context, sessionID string, d checkout.Details) error {
	_, err := c.Update(ctx, sessionID, func(snap *Snapshot) error {
		snap.Checkout = d
		return nil
	})
	return err
}

// Auth returns the stored profile or nil when the session has none.
func (c *Container) Auth(ctx context.Context, sessionID string) (*Auth, error) {
	snap, err := c.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return snap.Auth, nil
}

func (c *Container) SaveAuth(ctx context.Context, sessionID string, a Auth) error {
	_, err := c.Update(ctx, sessionID, func(snap *Snapshot) error {
		snap.Auth = &a
		return nil
	})
	return err
}

// Flow loads a verification flow. Flows live outside sessions so signup can
// verify a phone before any login exists.
func (c *Container) Flow(ctx context.Context, flowID string) (otp.Flow, error) {
	key, err := flowKey(flowID)
	if err != nil {
		return otp.Flow{}, err
	}
	raw, err := c.persister.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return otp.Flow{}, pkgerrors.New(pkgerrors.CodeNotFound, "verification not found")
	}
	if err != nil {
		return otp.Flow{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load verification")
	}
	var flow otp.Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return otp.Flow{}, pkgerrors.New(pkgerrors.CodeNotFound, "verification not found")
	}
	return flow, nil
}

func (c *Container) SaveFlow(ctx context.Context, flow otp.Flow) error {
	key, err := flowKey(flow.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(flow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode verification")
	}
	if err := c.persister.Put(ctx, key, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save verification")
	}
	return nil
}

// DeleteFlow removes a flow once its result has been consumed.
func (c *Container) DeleteFlow(ctx context.Context, flowID string) error {
	key, err := flowKey(flowID)
	if err != nil {
		return err
	}
	if err := c.persister.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to delete verification")
	}
	return nil
}

func sessionKey(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return sessionKeyPrefix + ":" + sessionID, nil
}

func flowKey(flowID string) (string, error) {
	flowID = strings.TrimSpace(flowID)
	if flowID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "verification id is required")
	}
	return flowKeyPrefix + ":" + flowID, nil
}
