package model

import (
	"context"
	"time"
)

// ProductCandidate is a read-only catalog projection surfaced to the user
// during a turn. The core never mutates candidates.
type ProductCandidate struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	LocalizedName string  `json:"nameHi,omitempty"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	ImageURL      string  `json:"image_url"`
	StockLevel    int     `json:"stock"`
	CategoryName  string  `json:"category"`
}

// OrderSummary is the read-only order projection used for order-status
// replies.
type OrderSummary struct {
	ID        string
	Status    string
	Total     float64
	ItemCount int
	PlacedAt  time.Time
}

// CatalogGateway is the read-only query boundary over products, categories,
// curated website knowledge and orders. Implementations must scope order
// lookups to the requesting user.
type CatalogGateway interface {
	// SearchProducts matches free text against product names (English and
	// Hindi) and descriptions, returning in-stock candidates.
	SearchProducts(ctx context.Context, query string, limit int) ([]ProductCandidate, error)

	// ProductsByCategory returns in-stock candidates for a category matched
	// by name. An unknown category yields an empty slice, not an error.
	ProductsByCategory(ctx context.Context, category string, limit int) ([]ProductCandidate, error)

	// RecommendedProducts returns a sampled selection of in-stock products,
	// used when a search intent carries no usable entities.
	RecommendedProducts(ctx context.Context, limit int) ([]ProductCandidate, error)

	// LookupKnowledge free-text matches the curated knowledge base and
	// returns up to three "{title}:\n{content}" blocks joined by blank
	// lines, or "" when nothing matches.
	LookupKnowledge(ctx context.Context, query string) (string, error)

	// LookupOrder returns the order only when it belongs to userID;
	// a missing or foreign order yields (nil, nil).
	LookupOrder(ctx context.Context, orderID, userID string) (*OrderSummary, error)

	// ListRecentOrders returns the user's most recent orders, newest first.
	ListRecentOrders(ctx context.Context, userID string, limit int) ([]OrderSummary, error)
}
