package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreeting(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, "Selamat malam"},
		{3, "Selamat malam"},
		{4, "Selamat pagi"},
		{10, "Selamat pagi"},
		{11, "Selamat siang"},
		{14, "Selamat siang"},
		{15, "Selamat sore"},
		{18, "Selamat sore"},
		{19, "Selamat malam"},
		{23, "Selamat malam"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Greeting(tc.hour), "hour=%d", tc.hour)
	}
}
