package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Course is a purchasable catalog item. Price and discount live on the course
// row; the checkout initiator works only with EffectivePrice.
type Course struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Title           string `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Slug            string `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug" validate:"required"`
	Description     string `gorm:"type:text" json:"description"`
	Price           int64  `gorm:"not null;default:0" json:"price" validate:"gte=0"`
	DiscountPercent int    `gorm:"not null;default:0" json:"discount_percent" validate:"gte=0,lte=100"`
	Published       bool   `gorm:"not null;default:false;index" json:"published"`
	OwnerID         uint   `gorm:"index" json:"owner_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Course) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// EffectivePrice is the price after discount, in toman.
func (c *Course) EffectivePrice() int64 {
	if c.DiscountPercent <= 0 {
		return c.Price
	}
	if c.DiscountPercent >= 100 {
		return 0
	}
	return c.Price - c.Price*int64(c.DiscountPercent)/100
}

// IsFree reports whether checkout may bypass payment entirely.
func (c *Course) IsFree() bool {
	return c.EffectivePrice() <= 0
}
