package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThumbQuery_Validation(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidations(v))

	width, zero := 120, 0

	tests := []struct {
		name    string
		query   ThumbQuery
		wantErr bool
	}{
		{"empty query", ThumbQuery{}, false},
		{"width only", ThumbQuery{Width: &width}, false},
		{"underscore prefix", ThumbQuery{Width: &width, Prefix: "my_small"}, false},
		{"dash in prefix", ThumbQuery{Width: &width, Prefix: "my-small"}, true},
		{"path in prefix", ThumbQuery{Width: &width, Prefix: "../x"}, true},
		{"zero width", ThumbQuery{Width: &zero}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
