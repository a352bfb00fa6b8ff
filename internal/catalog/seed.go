package catalog

import "github.com/shopspring/decimal"

// DefaultCollection is written on first start when SEED_CATALOG is enabled.
func DefaultCollection() []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Midnight Velvet",
			Brand:       "Vellor Signature",
			Category:    CategoryOriental,
			Price:       decimal.NewFromInt(185),
			Stock:       12,
			ImageURL:    "https://images.unsplash.com/photo-1594035910387-fea47794261f?auto=format&fit=crop&q=80&w=800",
			Description: "A deep, mysterious blend of oud and Damask rose, perfect for elegant evenings.",
			TopNotes:    []string{"Saffron", "Cinnamon"},
			MiddleNotes: []string{"Damask Rose", "Patchouli"},
			BaseNotes:   []string{"Oud", "Amber", "Vanilla"},
		},
		{
			ID:          "2",
			Name:        "Azure Breeze",
			Brand:       "Vellor Scents",
			Category:    CategoryFresh,
			Price:       decimal.NewFromInt(145),
			Stock:       25,
			ImageURL:    "https://images.unsplash.com/photo-1592945403244-b3fbafd7f539?auto=format&fit=crop&q=80&w=800",
			Description: "The crisp air of the Mediterranean coast captured in a bottle.",
			TopNotes:    []string{"Bergamot", "Lemon"},
			MiddleNotes: []string{"Sea Salt", "Neroli"},
			BaseNotes:   []string{"White Musk", "Driftwood"},
		},
		{
			ID:          "3",
			Name:        "Golden Santal",
			Brand:       "Vellor Scents",
			Category:    CategoryWoody,
			Price:       decimal.NewFromInt(160),
			Stock:       8,
			ImageURL:    "https://images.unsplash.com/photo-1557170334-a7c3a4f22030?auto=format&fit=crop&q=80&w=800",
			Description: "Creamy sandalwood meets spicy cardamom for a sophisticated daily signature.",
			TopNotes:    []string{"Cardamom", "Violet"},
			MiddleNotes: []string{"Iris", "Papyrus"},
			BaseNotes:   []string{"Sandalwood", "Leather", "Cedar"},
		},
	}
}
