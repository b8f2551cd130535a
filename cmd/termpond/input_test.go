package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestPressedEdge(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur tcell.ButtonMask
		want      tcell.ButtonMask
	}{
		{"left press", 0, tcell.Button1, tcell.Button1},
		{"right press feeds", 0, tcell.Button2, tcell.Button2},
		{"left held", tcell.Button1, tcell.Button1, 0},
		{"right while left held", tcell.Button1, tcell.Button1 | tcell.Button2, tcell.Button2},
		{"both at once", 0, tcell.Button1 | tcell.Button2, tcell.Button1},
		{"release", tcell.Button2, 0, 0},
		{"middle ignored", 0, tcell.Button3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pressedEdge(tt.prev, tt.cur); got != tt.want {
				t.Errorf("pressedEdge(%v, %v) = %v, want %v", tt.prev, tt.cur, got, tt.want)
			}
		})
	}
}
