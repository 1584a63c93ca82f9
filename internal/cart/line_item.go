package cart

// LineItem is one product entry in a cart. Prices are whole rupees.
type LineItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	UnitPrice   int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Description string `json:"description"`
	ImageGlyph  string `json:"image"`
}

// LineTotal is UnitPrice x Quantity.
func (li LineItem) LineTotal() int64 {
	return li.UnitPrice * li.Quantity
}
