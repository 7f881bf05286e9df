// Package pricing derives order totals from line items and authoritative
// catalogue prices. All money is integer cents; the tax term rounds down,
// matching historically stored amounts.
package pricing

import (
	"shopfront/internal/model"
)

// TaxBasisPoints is the fixed tax rate applied to every order (2%).
const TaxBasisPoints int64 = 200

// Quote is the result of pricing an item sequence. TotalCents is the amount
// charged; it is computed once at order creation and never recomputed.
type Quote struct {
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
}

// Calculate prices the given items against the supplied catalogue products.
// Every referenced product must be present in products; a missing product
// fails the whole calculation with ErrProductNotFound, never a partial total.
//
// discountBasisPts is applied to the subtotal before tax; pass 0 for no
// discount. Tax is floor(taxable * 2%): the division rounds toward zero on
// the non-negative cent amounts used here, which is the required
// rounding-down policy.
func Calculate(items []model.OrderItemRequest, products []model.Product, discountBasisPts int64) (*Quote, error) {
	if len(items) == 0 {
		return nil, model.ErrInvalidRequest
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var subtotal int64
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, model.ErrProductNotFound
		}
		subtotal += p.PriceCents * int64(item.Quantity)
	}

	discount := subtotal * discountBasisPts / 10_000
	taxable := subtotal - discount
	tax := taxable * TaxBasisPoints / 10_000

	return &Quote{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		TotalCents:    taxable + tax,
	}, nil
}

// UnitPrice returns the authoritative unit price for productID, or
// ErrProductNotFound if the catalogue lookup has no entry for it.
func UnitPrice(products []model.Product, productID string) (int64, error) {
	for _, p := range products {
		if p.ID == productID {
			return p.PriceCents, nil
		}
	}
	return 0, model.ErrProductNotFound
}
