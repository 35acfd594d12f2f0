package graph

import (
	"strings"

	"github.com/agrideliver/server/internal/agent/model"
)

// ReduceCart applies one turn's cart mutation and returns the resulting
// cart. It is pure: the input cart is never modified, and identical inputs
// always produce identical outputs.
//
// add_to_cart uses the first product candidate (the upstream fetch already
// resolved the referenced product); with no candidate the cart is left
// unchanged. remove_from_cart drops every line whose name contains the
// extracted product name, case-insensitively; without that entity nothing is
// removed. Every other intent passes the cart through untouched.
func ReduceCart(cart []model.CartLine, intent model.Intent, entities model.Entities, products []model.ProductCandidate) []model.CartLine {
	switch intent {
	case model.IntentAddToCart:
		if len(products) == 0 {
			return model.CloneCart(cart)
		}
		product := products[0]
		quantity := entities.QuantityOrDefault()

		updated := model.CloneCart(cart)
		for i := range updated {
			if updated[i].ProductID == product.ID {
				updated[i].Quantity += quantity
				return updated
			}
		}
		return append(updated, model.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
			ImageURL:  product.ImageURL,
		})

	case model.IntentRemoveFromCart:
		if entities.ProductName == "" {
			return model.CloneCart(cart)
		}
		needle := strings.ToLower(entities.ProductName)
		updated := make([]model.CartLine, 0, len(cart))
		for _, line := range cart {
			if strings.Contains(strings.ToLower(line.Name), needle) {
				continue
			}
			updated = append(updated, line)
		}
		return updated

	default:
		return model.CloneCart(cart)
	}
}
