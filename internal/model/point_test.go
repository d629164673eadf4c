package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Add(t *testing.T) {
	tests := []struct {
		name string
		p, q Point
		want Point
	}{
		{"zero", Point{}, Point{}, Point{}},
		{"positive", Pt(1, 2), Pt(3, 4), Pt(4, 6)},
		{"negative", Pt(10, -5), Pt(-20, 5), Pt(-10, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Add(tt.q))
			assert.Equal(t, tt.want, tt.q.Add(tt.p))
		})
	}
}

func TestPoint_IsZero(t *testing.T) {
	assert.True(t, Point{}.IsZero())
	assert.False(t, Pt(0, 1).IsZero())
}

func TestPoint_String(t *testing.T) {
	assert.Equal(t, "(3,-4)", Pt(3, -4).String())
}
