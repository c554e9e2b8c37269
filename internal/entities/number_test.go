package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "310", want: "310"},
		{in: " 7.2 ", want: "7.2"},
		{in: "7,2", want: "7.2"},
		{in: "0,125", want: "0.125"},
		{in: "1,200", want: "1200"},
		{in: "12,500.5", want: "12500.5"},
		{in: "1,234,567", want: "1234567"},
		{in: "1,2,3", err: true},
		{in: "1,20.5", err: true},
		{in: "1200,5.1", err: true},
		{in: ",5", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeNumber(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
