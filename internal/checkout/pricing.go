package checkout

import "github.com/shopspring/decimal"

const DefaultShippingFlat int64 = 50

// DefaultTaxRate is the 18% levied on the cart subtotal.
var DefaultTaxRate = decimal.NewFromFloat(0.18)

// Pricing holds the order-level charges applied on top of the cart subtotal.
type Pricing struct {
	ShippingFlat int64
	TaxRate      decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{ShippingFlat: DefaultShippingFlat, TaxRate: DefaultTaxRate}
}

// Quote is the price breakdown of an order in whole rupees.
type Quote struct {
	Subtotal   int64 `json:"subtotal"`
	Shipping   int64 `json:"shipping"`
	Tax        int64 `json:"tax"`
	GrandTotal int64 `json:"grand_total"`
}

type totaler interface {
	Total() int64
}

// Quote prices subtotal: tax is subtotal x rate rounded half-up to the rupee.
func (p Pricing) Quote(subtotal int64) Quote {
	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()
	return Quote{
		Subtotal:   subtotal,
		Shipping:   p.ShippingFlat,
		Tax:        tax,
		GrandTotal: subtotal + p.ShippingFlat + tax,
	}
}

func (p Pricing) QuoteCart(c totaler) Quote {
	return p.Quote(c.Total())
}
