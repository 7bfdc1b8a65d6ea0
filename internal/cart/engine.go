package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	"github.com/angelmondragon/gourmet-cart/pkg/logger"
	"github.com/angelmondragon/gourmet-cart/pkg/metrics"
	"github.com/angelmondragon/gourmet-cart/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultKey is the storage key used when Params.Key is empty.
const DefaultKey = "gourmetCart"

const (
	opAddItem        = "add_item"
	opRemoveItem     = "remove_item"
	opUpdateQuantity = "update_quantity"
)

// Params wires an Engine.
type Params struct {
	Store       StateStore
	Key         string
	DeliveryFee types.Money
	TaxRate     decimal.Decimal
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	// NewID generates line item ids. Defaults to random UUIDs.
	NewID func() string
}

// Engine is the single authority over cart contents. It is safe for
// concurrent use; mutations are serialized.
type Engine struct {
	store       StateStore
	key         string
	deliveryFee types.Money
	taxRate     decimal.Decimal
	log         *logger.Logger
	metrics     *metrics.CartMetrics
	newID       func() string

	changed *Topic[CartChanged]
	added   *Topic[ItemAdded]

	mu     sync.RWMutex
	items  []LineItem
	loaded bool
}

// New builds an engine. Call Load to restore persisted state; the first
// mutation loads implicitly if Load was never called.
func New(p Params) (*Engine, error) {
	if p.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "state store required")
	}
	if p.DeliveryFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "delivery fee must be non-negative")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "tax rate must be in [0, 1)")
	}
	if p.Key == "" {
		p.Key = DefaultKey
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.NewID == nil {
		p.NewID = func() string { return uuid.New().String() }
	}
	return &Engine{
		store:       p.Store,
		key:         p.Key,
		deliveryFee: p.DeliveryFee,
		taxRate:     p.TaxRate,
		log:         p.Logger,
		metrics:     p.Metrics,
		newID:       p.NewID,
		changed:     newTopic[CartChanged]("cart_changed", p.Logger),
		added:       newTopic[ItemAdded]("item_added", p.Logger),
	}, nil
}

// Changed is the CartChanged topic.
func (e *Engine) Changed() *Topic[CartChanged] {
	return e.changed
}

// Added is the ItemAdded topic.
func (e *Engine) Added() *Topic[ItemAdded] {
	return e.added
}

// Load reads the store once and publishes CartChanged. Missing, unreadable or
// invalid state yields an empty cart. Later calls do nothing.
func (e *Engine) Load(ctx context.Context) {
	e.mu.Lock()
	didLoad := e.ensureLoadedLocked(ctx)
	e.mu.Unlock()
	if didLoad {
		e.changed.publish(ctx, CartChanged{})
	}
}

// AddOption customizes a single AddItem call.
type AddOption func(*addOptions)

type addOptions struct {
	trigger any
}

// WithTrigger attaches an opaque UI reference that is echoed on ItemAdded.
func WithTrigger(ref any) AddOption {
	return func(o *addOptions) {
		o.trigger = ref
	}
}

// AddItem adds one unit of (name, originLabel). An existing line item with the
// same identity has its quantity incremented and keeps its first price. An add
// that would push the cart total past types.MaxMoney is refused with
// CodeInvalidInput.
func (e *Engine) AddItem(ctx context.Context, name string, unitPrice types.Money, originLabel string, opts ...AddOption) (LineItem, error) {
	if err := validateAddItem(name, unitPrice, originLabel); err != nil {
		return LineItem{}, err
	}
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx = e.log.WithOperation(ctx, opAddItem)

	e.mu.Lock()
	didLoad := e.ensureLoadedLocked(ctx)
	item, err := e.mergeLocked(name, unitPrice, originLabel)
	if err == nil {
		e.persistLocked(ctx, opAddItem)
	}
	e.mu.Unlock()

	if didLoad {
		e.changed.publish(ctx, CartChanged{})
	}
	if err != nil {
		return LineItem{}, err
	}
	e.metrics.IncMutation(opAddItem)
	e.changed.publish(ctx, CartChanged{})
	e.added.publish(ctx, ItemAdded{
		Name:        name,
		UnitPrice:   unitPrice,
		OriginLabel: originLabel,
		Trigger:     o.trigger,
	})
	return item, nil
}

// RemoveItem deletes the line item with id. Unknown ids are a no-op.
func (e *Engine) RemoveItem(ctx context.Context, id string) {
	ctx = e.log.WithItemID(e.log.WithOperation(ctx, opRemoveItem), id)

	e.mu.Lock()
	didLoad := e.ensureLoadedLocked(ctx)
	removed := e.removeLocked(id)
	if removed {
		e.persistLocked(ctx, opRemoveItem)
	}
	e.mu.Unlock()

	if didLoad {
		e.changed.publish(ctx, CartChanged{})
	}
	if !removed {
		e.log.Debug(ctx, "remove of unknown line item ignored")
		return
	}
	e.metrics.IncMutation(opRemoveItem)
	e.changed.publish(ctx, CartChanged{})
}

// UpdateQuantity adds delta to the quantity of id. A result of zero or less
// removes the item. Unknown ids, a zero delta and an increase the cart total
// cannot represent are a no-op.
func (e *Engine) UpdateQuantity(ctx context.Context, id string, delta int) {
	ctx = e.log.WithItemID(e.log.WithOperation(ctx, opUpdateQuantity), id)

	e.mu.Lock()
	didLoad := e.ensureLoadedLocked(ctx)
	changed := false
	if idx := e.indexLocked(id); idx >= 0 && delta != 0 {
		next := addSaturating(e.items[idx].Quantity, delta)
		switch {
		case next <= 0:
			e.removeLocked(id)
			changed = true
		case e.fitsWithQuantityLocked(idx, next):
			e.items[idx].Quantity = next
			changed = true
		default:
			e.log.Warn(ctx, "quantity update refused, cart total would overflow")
		}
		if changed {
			e.persistLocked(ctx, opUpdateQuantity)
		}
	}
	e.mu.Unlock()

	if didLoad {
		e.changed.publish(ctx, CartChanged{})
	}
	if !changed {
		e.log.Debug(ctx, "quantity update ignored")
		return
	}
	e.metrics.IncMutation(opUpdateQuantity)
	e.changed.publish(ctx, CartChanged{})
}

// Snapshot returns a copy of the current cart.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	items := make([]LineItem, len(e.items))
	copy(items, e.items)
	return Snapshot{Items: items, DeliveryFee: e.deliveryFee, TaxRate: e.taxRate}
}

// Subtotal is recomputed from the current items on every call.
func (e *Engine) Subtotal() types.Money {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return subtotalOf(e.items)
}

// Tax is Subtotal times the session tax rate, rounded to a whole minor unit.
func (e *Engine) Tax() types.Money {
	return e.Subtotal().ApplyRate(e.taxRate)
}

// Total is Subtotal plus the delivery fee plus Tax.
func (e *Engine) Total() types.Money {
	subtotal := e.Subtotal()
	return subtotal + e.deliveryFee + subtotal.ApplyRate(e.taxRate)
}

// ItemCount sums the quantities of all line items.
func (e *Engine) ItemCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return itemCountOf(e.items)
}

func (e *Engine) ensureLoadedLocked(ctx context.Context) bool {
	if e.loaded {
		return false
	}
	e.loaded = true
	e.items = e.restore(e.log.WithCartKey(ctx, e.key))
	e.metrics.SetLineItems(len(e.items))
	return true
}

func (e *Engine) restore(ctx context.Context) []LineItem {
	payload, err := e.store.Get(ctx, e.key)
	if errors.Is(err, ErrStateNotFound) {
		e.metrics.ObserveRestore(metrics.RestoreEmpty)
		e.log.Debug(ctx, "no stored cart, starting empty")
		return nil
	}
	if err != nil {
		e.metrics.ObserveRestore(metrics.RestoreUnavailable)
		e.log.Error(ctx, "cart store unreadable, starting empty",
			pkgerrors.Wrap(pkgerrors.CodePersistenceUnavailable, err, "read cart state"))
		return nil
	}

	items, version, err := decodeState(payload)
	if err != nil {
		e.metrics.ObserveRestore(metrics.RestoreCorrupt)
		ctx = e.log.WithFields(ctx, map[string]any{
			"state_version": version,
			"error":         err.Error(),
		})
		e.log.Warn(ctx, "discarding malformed stored cart")
		return nil
	}

	if !totalFits(items, e.deliveryFee, e.taxRate) {
		e.metrics.ObserveRestore(metrics.RestoreCorrupt)
		ctx = e.log.WithFields(ctx, map[string]any{"state_version": version, "line_items": len(items)})
		e.log.Warn(ctx, "discarding malformed stored cart, total overflows")
		return nil
	}

	e.metrics.ObserveRestore(metrics.RestoreRestored)
	ctx = e.log.WithFields(ctx, map[string]any{"state_version": version, "line_items": len(items)})
	e.log.Info(ctx, "cart restored")
	return items
}

func (e *Engine) persistLocked(ctx context.Context, op string) {
	e.metrics.SetLineItems(len(e.items))

	started := time.Now()
	var fault *pkgerrors.Error
	payload, err := encodeState(e.items)
	if err != nil {
		fault = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart state")
	} else if err = e.store.Put(ctx, e.key, payload); err != nil {
		fault = pkgerrors.Wrap(pkgerrors.CodePersistenceUnavailable, err, "persist cart state")
	}
	e.metrics.ObservePersist(op, time.Since(started))
	if fault == nil {
		return
	}

	e.metrics.IncPersistFailure(op)
	ctx = e.log.WithFields(e.log.WithCartKey(ctx, e.key), map[string]any{"error_dump": pkgerrors.Dump(fault)})
	e.log.Error(ctx, "cart state not persisted; in-memory cart kept", fault)
}

func (e *Engine) mergeLocked(name string, unitPrice types.Money, originLabel string) (LineItem, error) {
	key := identity{name: name, origin: originLabel}
	for i := range e.items {
		if e.items[i].identity() != key {
			continue
		}
		next := addSaturating(e.items[i].Quantity, 1)
		if !e.fitsWithQuantityLocked(i, next) {
			return LineItem{}, errTotalOverflow(unitPrice)
		}
		e.items[i].Quantity = next
		return e.items[i], nil
	}

	item := LineItem{
		Name:        name,
		UnitPrice:   unitPrice,
		OriginLabel: originLabel,
		Quantity:    1,
	}
	if !totalFits(append(slices.Clip(e.items), item), e.deliveryFee, e.taxRate) {
		return LineItem{}, errTotalOverflow(unitPrice)
	}
	item.ID = e.newID()
	e.items = append(e.items, item)
	return item, nil
}

// fitsWithQuantityLocked reports whether the cart total still fits once the
// item at idx holds qty units.
func (e *Engine) fitsWithQuantityLocked(idx, qty int) bool {
	next := slices.Clone(e.items)
	next[idx].Quantity = qty
	return totalFits(next, e.deliveryFee, e.taxRate)
}

func errTotalOverflow(unitPrice types.Money) error {
	return pkgerrors.New(pkgerrors.CodeInvalidInput, "cart total would exceed the largest representable amount").
		WithDetails(map[string]string{"unitPrice": fmt.Sprintf("%d overflows the cart total", unitPrice)})
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) removeLocked(id string) bool {
	idx := e.indexLocked(id)
	if idx < 0 {
		return false
	}
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	return true
}

func addSaturating(qty, delta int) int {
	if delta > 0 && qty > math.MaxInt-delta {
		return math.MaxInt
	}
	return qty + delta
}
