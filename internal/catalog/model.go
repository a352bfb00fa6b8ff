package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrInvalidProduct = errors.New("invalid product")
)

type Category string

const (
	CategoryOriental Category = "Oriental"
	CategoryFresh    Category = "Fresh"
	CategoryWoody    Category = "Woody"
	CategoryFloral   Category = "Floral"
)

var categories = []Category{CategoryOriental, CategoryFresh, CategoryWoody, CategoryFloral}

// ParseCategory matches case-insensitively and returns the canonical spelling.
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, s)
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl"`
	Description string          `json:"description"`
	TopNotes    []string        `json:"topNotes"`
	MiddleNotes []string        `json:"middleNotes"`
	BaseNotes   []string        `json:"baseNotes"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if _, err := ParseCategory(string(p.Category)); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

// normalize fills nil note lists so they encode as [] rather than null.
func (p Product) normalize() Product {
	if p.TopNotes == nil {
		p.TopNotes = []string{}
	}
	if p.MiddleNotes == nil {
		p.MiddleNotes = []string{}
	}
	if p.BaseNotes == nil {
		p.BaseNotes = []string{}
	}
	if c, err := ParseCategory(string(p.Category)); err == nil {
		p.Category = c
	}
	return p
}
