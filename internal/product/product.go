package product

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product maps to the `products` table. Prices are numeric in the database
// and decimal in Go so totals never go through float64.
type Product struct {
	ID        int             `json:"id"`
	ItemGroup string          `json:"itemGroup"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Price     decimal.Decimal `json:"price"`
	SalePrice decimal.Decimal `json:"salePrice"`
	ImgURLs   []string        `json:"imgUrls"`
	Sell      bool            `json:"sell"`
	EditTime  time.Time       `json:"editTime"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EffectivePrice is the price charged for one unit: the sale price when one
// is set, the list price otherwise.
func EffectivePrice(price, salePrice decimal.Decimal) decimal.Decimal {
	if salePrice.IsPositive() {
		return salePrice
	}
	return price
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	ItemGroup *string          `json:"itemGroup"`
	Title     *string          `json:"title"`
	Content   *string          `json:"content"`
	Price     *decimal.Decimal `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice"`
	ImgURLs   *[]string        `json:"imgUrls"`
	Sell      *bool            `json:"sell"`
}

func (p Patch) IsEmpty() bool {
	return p.ItemGroup == nil && p.Title == nil && p.Content == nil &&
		p.Price == nil && p.SalePrice == nil && p.ImgURLs == nil && p.Sell == nil
}

// Apply returns a copy of prod with the populated fields of p written over it.
func (p Patch) Apply(prod Product, now time.Time) Product {
	if p.ItemGroup != nil {
		prod.ItemGroup = *p.ItemGroup
	}
	if p.Title != nil {
		prod.Title = *p.Title
	}
	if p.Content != nil {
		prod.Content = *p.Content
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.SalePrice != nil {
		prod.SalePrice = *p.SalePrice
	}
	if p.ImgURLs != nil {
		prod.ImgURLs = append([]string(nil), (*p.ImgURLs)...)
	}
	if p.Sell != nil {
		prod.Sell = *p.Sell
	}
	prod.EditTime = now
	return prod
}

// EncodeImgURLs renders image urls the way the imgUrls text columns store them.
func EncodeImgURLs(urls []string) string {
	if len(urls) == 0 {
		return "[]"
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeImgURLs parses an imgUrls column. Legacy rows holding a single bare
// url are returned as a one element list.
func DecodeImgURLs(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return []string{raw}
	}
	if urls == nil {
		return []string{}
	}
	return urls
}
