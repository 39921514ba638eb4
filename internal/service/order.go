package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/scoopstand/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order configurator.
var (
	ErrUnknownContainer     = errors.New("unknown container")
	ErrInvalidScoopCount    = errors.New("scoop count out of range")
	ErrUnknownFlavor        = errors.New("unknown flavor")
	ErrIndexOutOfRange      = errors.New("scoop index out of range")
	ErrIncompleteSelection  = errors.New("every scoop needs a flavor")
	ErrInvalidServiceMode   = errors.New("invalid service_mode")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

// Order is the in-progress selection of one kiosk session.
// Flavors holds one slot per scoop; an empty slot is unassigned.
type Order struct {
	ServiceMode   string    `json:"service_mode"`
	Container     Container `json:"container"`
	ScoopCount    int       `json:"scoop_count"`
	Flavors       []string  `json:"flavors"`
	PaymentMethod string    `json:"payment_method"`
}

// AssignedFlavors counts the scoops that already have a flavor.
func (o Order) AssignedFlavors() int {
	n := 0
	for _, f := range o.Flavors {
		if f != "" {
			n++
		}
	}
	return n
}

// ReceiptScoop is one scoop line on a receipt, numbered from 1.
type ReceiptScoop struct {
	Number int    `json:"number"`
	Flavor string `json:"flavor"`
}

// Receipt is the confirmation of a submitted order.
type Receipt struct {
	ID            uuid.UUID       `json:"id"`
	ServiceMode   string          `json:"service_mode"`
	Container     Container       `json:"container"`
	ScoopCount    int             `json:"scoop_count"`
	Scoops        []ReceiptScoop  `json:"scoops"`
	PaymentMethod string          `json:"payment_method"`
	Price         decimal.Decimal `json:"price"`
	PriceDisplay  string          `json:"price_display"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}

// OrderConfigurator enforces the kiosk's selection rules against a fixed catalog.
// It holds no per-session state; every call operates on the Order passed in.
type OrderConfigurator struct {
	catalog    Catalog
	containers map[string]Container
	flavors    map[string]bool
	now        func() time.Time
}

// NewOrderConfigurator validates the catalog and builds a configurator over it.
func NewOrderConfigurator(catalog Catalog) (*OrderConfigurator, error) {
	if err := catalog.validate(); err != nil {
		return nil, err
	}

	c := &OrderConfigurator{
		catalog: Catalog{
			Containers: slices.Clone(catalog.Containers),
			Flavors:    slices.Clone(catalog.Flavors),
		},
		containers: make(map[string]Container, len(catalog.Containers)),
		flavors:    make(map[string]bool, len(catalog.Flavors)),
		now:        time.Now,
	}
	for _, ct := range catalog.Containers {
		c.containers[ct.Name] = ct
	}
	for _, f := range catalog.Flavors {
		c.flavors[f] = true
	}
	return c, nil
}

// Containers returns the catalog containers in menu order.
func (c *OrderConfigurator) Containers() []Container {
	return slices.Clone(c.catalog.Containers)
}

// Flavors returns the catalog flavors in menu order.
func (c *OrderConfigurator) Flavors() []string {
	return slices.Clone(c.catalog.Flavors)
}

// NewOrder returns an order with the kiosk's default selections: first
// container at full capacity, no flavors yet, dine-in, card payment.
func (c *OrderConfigurator) NewOrder() Order {
	first := c.catalog.Containers[0]
	return Order{
		ServiceMode:   enum.ServiceModes[0],
		Container:     first,
		ScoopCount:    first.MaxScoops,
		Flavors:       make([]string, first.MaxScoops),
		PaymentMethod: enum.PaymentMethods[0],
	}
}

// SelectContainer switches the order to the named container. The scoop count
// resets to the container's capacity and every flavor assignment is cleared,
// including when the same container is selected again.
func (c *OrderConfigurator) SelectContainer(o *Order, name string) (Container, error) {
	ct, ok := c.containers[name]
	if !ok {
		return Container{}, fmt.Errorf("%w: %q", ErrUnknownContainer, name)
	}
	o.Container = ct
	o.ScoopCount = ct.MaxScoops
	o.Flavors = make([]string, ct.MaxScoops)
	return ct, nil
}

// SetScoopCount sets how many scoops the order holds. Existing assignments
// below the new count are kept; slots beyond it are dropped.
func (c *OrderConfigurator) SetScoopCount(o *Order, n int) (int, error) {
	if n < 1 || n > o.Container.MaxScoops {
		return 0, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidScoopCount, n, o.Container.MaxScoops)
	}

	flavors := make([]string, n)
	copy(flavors, o.Flavors)
	o.ScoopCount = n
	o.Flavors = flavors
	return n, nil
}

// AssignFlavor puts a catalog flavor into the scoop slot at index (0-based).
func (c *OrderConfigurator) AssignFlavor(o *Order, index int, flavor string) error {
	if index < 0 || index >= o.ScoopCount {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, o.ScoopCount-1)
	}
	if !c.flavors[flavor] {
		return fmt.Errorf("%w: %q", ErrUnknownFlavor, flavor)
	}
	if len(o.Flavors) != o.ScoopCount {
		flavors := make([]string, o.ScoopCount)
		copy(flavors, o.Flavors)
		o.Flavors = flavors
	}
	o.Flavors[index] = flavor
	return nil
}

// SetServiceMode records whether the order is eaten in or taken away.
func (c *OrderConfigurator) SetServiceMode(o *Order, mode string) error {
	if !slices.Contains(enum.ServiceModes, mode) {
		return fmt.Errorf("%w: %q", ErrInvalidServiceMode, mode)
	}
	o.ServiceMode = mode
	return nil
}

// SetPaymentMethod records how the order will be paid.
func (c *OrderConfigurator) SetPaymentMethod(o *Order, method string) error {
	if !slices.Contains(enum.PaymentMethods, method) {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}
	o.PaymentMethod = method
	return nil
}

// ComputePrice returns the order's final price.
// The price is the container's fixed price: flavors and payment method do
// not change it.
func ComputePrice(o Order) decimal.Decimal {
	return o.Container.Price
}

// SubmitOrder validates the completed order and returns its receipt.
func (c *OrderConfigurator) SubmitOrder(o Order) (*Receipt, error) {
	if o.ScoopCount < 1 || o.ScoopCount > o.Container.MaxScoops {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidScoopCount, o.ScoopCount, o.Container.MaxScoops)
	}
	if len(o.Flavors) != o.ScoopCount || o.AssignedFlavors() != o.ScoopCount {
		return nil, fmt.Errorf("%w: %d of %d scoops chosen", ErrIncompleteSelection, o.AssignedFlavors(), o.ScoopCount)
	}

	scoops := make([]ReceiptScoop, o.ScoopCount)
	for i, f := range o.Flavors {
		scoops[i] = ReceiptScoop{Number: i + 1, Flavor: f}
	}

	price := ComputePrice(o)
	return &Receipt{
		ID:            uuid.New(),
		ServiceMode:   o.ServiceMode,
		Container:     o.Container,
		ScoopCount:    o.ScoopCount,
		Scoops:        scoops,
		PaymentMethod: o.PaymentMethod,
		Price:         price,
		PriceDisplay:  FormatWon(price),
		SubmittedAt:   c.now(),
	}, nil
}

// FormatWon renders a price with thousands separators, e.g. "13,500원".
func FormatWon(d decimal.Decimal) string {
	return humanize.Comma(d.Round(0).IntPart()) + "원"
}
