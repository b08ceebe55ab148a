package httpx

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		query   string
		want    domain.PageRequest
		wantErr bool
	}{
		{"", domain.PageRequest{Page: 1, Limit: 10}, false},
		{"page=3&limit=25", domain.PageRequest{Page: 3, Limit: 25}, false},
		{"limit=100", domain.PageRequest{Page: 1, Limit: 100}, false},
		{"limit=101", domain.PageRequest{}, true},
		{"limit=200", domain.PageRequest{}, true},
		{"page=x", domain.PageRequest{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := parsePage(q)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
