package address

import (
	"strings"
	"time"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

// Address is a saved recipient a user can check out to.
type Address struct {
	AddressID int       `json:"addressId"`
	UserID    int       `json:"userId"`
	Consignee string    `json:"consignee"`
	Tel       string    `json:"tel"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fields is the user-editable part of an Address.
type Fields struct {
	Consignee string `json:"consignee"`
	Tel       string `json:"tel"`
	Address   string `json:"address"`
}

func (f Fields) normalized() Fields {
	return Fields{
		Consignee: strings.TrimSpace(f.Consignee),
		Tel:       strings.TrimSpace(f.Tel),
		Address:   strings.TrimSpace(f.Address),
	}
}

func (f Fields) validate() error {
	if f.Consignee == "" || f.Tel == "" || f.Address == "" {
		return apperror.Validation("consignee, tel and address are required")
	}
	return nil
}
