package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []uint{3, 5, 9}, parseIDList("3,5,9"))
	assert.Equal(t, []uint{3, 5}, parseIDList(" 3 , 5 "))
	assert.Empty(t, parseIDList(""))
	assert.Empty(t, parseIDList("a,b"))
	assert.Equal(t, []uint{7}, parseIDList("0,7,x"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "a", firstNonEmpty("a"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
