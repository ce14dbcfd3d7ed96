package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdinalScaleRegistry(t *testing.T) {
	scales := map[string]*OrdinalScaleConfig{
		"ecog": {
			Name: "ECOG Performance Status",
			Levels: []OrdinalScaleLevel{
				{Value: 0, Label: "0"},
				{Value: 1, Label: "1"},
			},
		},
	}
	registry := NewOrdinalScaleRegistry(scales)

	assert.Equal(t, 1, registry.Len())

	ecog, err := registry.Get("ecog")
	assert.NoError(t, err)
	assert.Len(t, ecog.Levels, 2)

	_, err = registry.Get("who")
	assert.True(t, errors.Is(err, ErrOrdinalScaleNotFound))
}
