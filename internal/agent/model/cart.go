package model

// CartLine is one product entry in a session's cart. Lines are unique by
// ProductID; adding the same product again accumulates Quantity.
type CartLine struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	ImageURL  string  `json:"image_url" bson:"image_url"`
}

// CloneCart returns an independent copy of the cart so reducers can stay
// pure with respect to their inputs.
func CloneCart(cart []CartLine) []CartLine {
	if cart == nil {
		return nil
	}
	out := make([]CartLine, len(cart))
	copy(out, cart)
	return out
}
