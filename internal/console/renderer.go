package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/angelmondragon/gourmet-cart/internal/cart"
)

const emptyMessage = "Your cart is empty"

// Source is the read and subscribe surface the renderer needs from the engine.
type Source interface {
	Snapshot() cart.Snapshot
	Changed() *cart.Topic[cart.CartChanged]
	Added() *cart.Topic[cart.ItemAdded]
}

// Renderer writes the cart listing to a terminal whenever the cart changes.
type Renderer struct {
	src      Source
	out      io.Writer
	currency string

	mu sync.Mutex
}

func NewRenderer(src Source, out io.Writer, currency string) *Renderer {
	return &Renderer{src: src, out: out, currency: currency}
}

// Attach subscribes to both topics. The returned func detaches again.
func (r *Renderer) Attach() (detach func()) {
	offChanged := r.src.Changed().Subscribe(func(cart.CartChanged) {
		r.Render()
	})
	offAdded := r.src.Added().Subscribe(r.flash)
	return func() {
		offChanged()
		offAdded()
	}
}

// Render writes the current snapshot.
func (r *Renderer) Render() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, r.Listing(r.src.Snapshot()))
}

// Listing formats a snapshot: one row per line item, then the totals block.
func (r *Renderer) Listing(snap cart.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cart (%d)\n", snap.ItemCount())
	if snap.IsEmpty() {
		fmt.Fprintf(&b, "  %s\n", emptyMessage)
	}
	for _, item := range snap.Items {
		fmt.Fprintf(&b, "  [%s] %s x%d @ %s from %s = %s\n",
			item.ID, item.Name, item.Quantity,
			item.UnitPrice.Format(r.currency), item.OriginLabel,
			item.Subtotal().Format(r.currency))
	}
	fmt.Fprintf(&b, "Subtotal: %s\n", snap.Subtotal().Format(r.currency))
	fmt.Fprintf(&b, "Delivery: %s\n", snap.DeliveryFee.Format(r.currency))
	fmt.Fprintf(&b, "Tax (%s%%): %s\n", snap.TaxRate.Shift(2).String(), snap.Tax().Format(r.currency))
	fmt.Fprintf(&b, "Total: %s\n", snap.Total().Format(r.currency))
	return b.String()
}

func (r *Renderer) flash(e cart.ItemAdded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := fmt.Sprintf("+ %s added (%s)", e.Name, e.UnitPrice.Format(r.currency))
	if e.Trigger != nil {
		line += fmt.Sprintf(" via %v", e.Trigger)
	}
	fmt.Fprintln(r.out, line)
}
