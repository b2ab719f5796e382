package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID          uuid.UUID
	Email       string
	Password    string
	FullName    string
	Phone       string
	Role        string // buyer, seller, admin
	EmailOptOut bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Store struct {
	ID          uuid.UUID
	OwnerUserID uuid.UUID
	Name        string
	Category    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Product struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       int
	SoldCount   int
	Variations  []Variation
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Variation struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	Color           string
	Size            string
	AdditionalPrice decimal.Decimal
	Stock           int
}

// UnitPrice resolves the effective unit price: sale price wins over list
// price when set, plus the variation surcharge when a variation is chosen.
func (p *Product) UnitPrice(v *Variation) decimal.Decimal {
	base := p.Price
	if p.SalePrice != nil {
		base = *p.SalePrice
	}
	if v != nil {
		base = base.Add(v.AdditionalPrice)
	}
	return base
}

func (p *Product) FindVariation(id uuid.UUID) *Variation {
	for i := range p.Variations {
		if p.Variations[i].ID == id {
			return &p.Variations[i]
		}
	}
	return nil
}
