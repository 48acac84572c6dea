package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain digits", in: "5551234567", want: "5551234567"},
		{name: "formatted", in: "(555) 123-4567", want: "5551234567"},
		{name: "international", in: "+62 812-3456-7890", want: "+6281234567890"},
		{name: "dots", in: "555.123.4567", want: "5551234567"},
		{name: "surrounding space", in: "  5551234567  ", want: "5551234567"},
		{name: "empty", in: "", wantErr: true},
		{name: "too short", in: "12345", wantErr: true},
		{name: "too long", in: "1234567890123456", wantErr: true},
		{name: "letters", in: "555-CALL-NOW", wantErr: true},
		{name: "plus not leading", in: "555+1234567", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePhoneIsIdempotent(t *testing.T) {
	once, err := NormalizePhone("+1 (555) 123-4567")
	assert.NoError(t, err)

	twice, err := NormalizePhone(once)
	assert.NoError(t, err)
	assert.Equal(t, once, twice)
}
