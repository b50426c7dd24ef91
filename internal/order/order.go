package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

const (
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPaid:       true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

// Recipient is who an order is delivered to.
type Recipient struct {
	Name    string `json:"consignee"`
	Phone   string `json:"tel"`
	Address string `json:"address"`
}

func (r Recipient) normalized() Recipient {
	return Recipient{
		Name:    strings.TrimSpace(r.Name),
		Phone:   strings.TrimSpace(r.Phone),
		Address: strings.TrimSpace(r.Address),
	}
}

func (r Recipient) validate() error {
	if r.Name == "" || r.Phone == "" || r.Address == "" {
		return apperror.Validation("consignee, tel and address are required")
	}
	return nil
}

// Header maps to a row of "orderCustomers".
type Header struct {
	OrderNumber string    `json:"orderNumber"`
	UserID      int       `json:"userId"`
	Consignee   string    `json:"consignee"`
	Tel         string    `json:"tel"`
	Address     string    `json:"address"`
	Status      string    `json:"status"`
	CheckTime   time.Time `json:"checkTime"`
}

// Line maps to a row of "orderInfor". Name, price and images are copies
// taken at checkout and never follow later catalog changes.
type Line struct {
	OrderNumber string          `json:"orderNumber"`
	ProductID   int             `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Qty         int             `json:"qty"`
	ImgURLs     []string        `json:"imgUrls"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Order struct {
	Header
	Items       []Line          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// NewOrder computes every line subtotal and the order total from the unit
// prices and quantities.
func NewOrder(h Header, items []Line) Order {
	total := decimal.Zero
	out := make([]Line, len(items))
	for i, l := range items {
		l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
		total = total.Add(l.Subtotal)
		out[i] = l
	}
	return Order{Header: h, Items: out, TotalAmount: total}
}

// Confirmation is the result of a checkout. Replayed is set when the
// idempotency key matched an order placed earlier.
type Confirmation struct {
	OrderNumber string
	Order       Order
	Replayed    bool
}
