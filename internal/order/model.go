package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

const DefaultPaymentMethod = "Easypaisa"

// Item is a line as it was in the cart when the order was placed.
type Item struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Brand     string           `json:"brand"`
	Category  catalog.Category `json:"category"`
	Price     decimal.Decimal  `json:"price"`
	ImageURL  string           `json:"imageUrl"`
	Quantity  int              `json:"quantity"`
}

type Order struct {
	ID                    string          `json:"id"`
	CustomerName          string          `json:"customerName"`
	CustomerEmail         string          `json:"customerEmail"`
	WhatsappNumber        string          `json:"whatsappNumber"`
	Address               string          `json:"address"`
	PostalCode            string          `json:"postalCode"`
	Items                 []Item          `json:"items"`
	TotalAmount           decimal.Decimal `json:"totalAmount"`
	Status                Status          `json:"status"`
	PaymentMethod         string          `json:"paymentMethod"`
	TransactionScreenshot string          `json:"transactionScreenshot"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// NewID returns a time-derived order id such as VL-1718000000000-3F9A1C.
func NewID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("VL-%d-%s", now.UnixMilli(), suffix)
}
