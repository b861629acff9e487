package models

import (
	"errors"
	"unicode"
)

// Product 代表一個可入庫的商品
type Product struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
}

func NewProduct() *Product {
	return new(Product)
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return errors.New("product name is required")
	}
	if p.SKU == "" {
		return errors.New("SKU is required")
	}
	for _, r := range p.SKU {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return errors.New("SKU must be alphanumeric")
		}
	}
	return nil
}
