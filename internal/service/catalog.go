package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidCatalog is returned when a catalog fails construction checks.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Container is a serving vessel with a fixed scoop capacity and price.
type Container struct {
	Name      string          `json:"name"`
	MaxScoops int             `json:"max_scoops"`
	Price     decimal.Decimal `json:"price"`
}

// Catalog is the fixed menu a configurator is built from.
type Catalog struct {
	Containers []Container
	Flavors    []string
}

// DefaultCatalog returns the kiosk's standard menu.
func DefaultCatalog() Catalog {
	return Catalog{
		Containers: []Container{
			{Name: "Single Cup", MaxScoops: 1, Price: decimal.NewFromInt(3500)},
			{Name: "Double Cup", MaxScoops: 2, Price: decimal.NewFromInt(6500)},
			{Name: "Pint", MaxScoops: 3, Price: decimal.NewFromInt(9500)},
			{Name: "Quart", MaxScoops: 4, Price: decimal.NewFromInt(13500)},
		},
		Flavors: []string{
			"Mom Is An Alien",
			"Shooting Star",
			"Mint Chocolate Chip",
			"New York Cheesecake",
			"Almond Bonbon",
			"Gone With The Wind",
			"Chocolate Mousse",
			"Rainbow Sherbet",
			"Cookies 'n Cream",
			"Strawberry",
		},
	}
}

// validate checks the structural rules every catalog must satisfy.
func (c Catalog) validate() error {
	if len(c.Containers) == 0 {
		return fmt.Errorf("%w: no containers", ErrInvalidCatalog)
	}
	if len(c.Flavors) == 0 {
		return fmt.Errorf("%w: no flavors", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(c.Containers))
	for i, ct := range c.Containers {
		if ct.Name == "" {
			return fmt.Errorf("%w: containers[%d]: name is required", ErrInvalidCatalog, i)
		}
		if seen[ct.Name] {
			return fmt.Errorf("%w: duplicate container %q", ErrInvalidCatalog, ct.Name)
		}
		seen[ct.Name] = true
		if ct.MaxScoops < 1 {
			return fmt.Errorf("%w: container %q: max_scoops must be >= 1", ErrInvalidCatalog, ct.Name)
		}
		if ct.Price.IsNegative() {
			return fmt.Errorf("%w: container %q: negative price", ErrInvalidCatalog, ct.Name)
		}
	}

	seenFlavor := make(map[string]bool, len(c.Flavors))
	for i, f := range c.Flavors {
		if f == "" {
			return fmt.Errorf("%w: flavors[%d]: name is required", ErrInvalidCatalog, i)
		}
		if seenFlavor[f] {
			return fmt.Errorf("%w: duplicate flavor %q", ErrInvalidCatalog, f)
		}
		seenFlavor[f] = true
	}
	return nil
}
