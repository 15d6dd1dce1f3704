package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourseEffectivePrice(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		discount int
		want     int64
	}{
		{"no discount", 100000, 0, 100000},
		{"thirty percent", 100000, 30, 70000},
		{"rounds down", 99999, 30, 70000},
		{"full discount", 100000, 100, 0},
		{"discount over 100 clamps to free", 100000, 150, 0},
		{"zero price", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Course{Price: tt.price, DiscountPercent: tt.discount}
			assert.Equal(t, tt.want, c.EffectivePrice())
		})
	}
}

func TestCourseIsFree(t *testing.T) {
	assert.True(t, (&Course{Price: 0}).IsFree())
	assert.True(t, (&Course{Price: 50000, DiscountPercent: 100}).IsFree())
	assert.False(t, (&Course{Price: 50000, DiscountPercent: 99}).IsFree())
}

func TestCourseValidate(t *testing.T) {
	valid := Course{Title: "Intro to Go", Slug: "intro-to-go", Price: 50000}
	assert.NoError(t, valid.Validate())

	noSlug := Course{Title: "Intro to Go", Price: 50000}
	assert.Error(t, noSlug.Validate())

	badDiscount := Course{Title: "Intro to Go", Slug: "intro-to-go", DiscountPercent: 101}
	assert.Error(t, badDiscount.Validate())
}
