package models

import "tbs/src/types"

// Product is the catalog read model. Unit prices here are the only price
// authority; client-submitted totals are never trusted.
type Product struct {
	ID       uint              `gorm:"primarykey" json:"id"`
	Type     types.ProductType `json:"type"`
	Name     string            `json:"name"`
	Location string            `json:"location,omitempty"`

	UnitPrice int64               `json:"unit_price"`
	Currency  string              `json:"currency,omitempty"`
	Status    types.ProductStatus `gorm:"default:open" json:"status"`

	Rooms []Room `json:"rooms,omitempty"`

	types.Timestamps
}

// Room belongs to an accommodation product and carries its own unit price.
type Room struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ProductID uint   `gorm:"index" json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Capacity  uint   `json:"capacity,omitempty"`

	types.Timestamps
}
