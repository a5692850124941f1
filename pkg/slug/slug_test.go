package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"PORSCHE", "porsche"},
		{"FORMULA UNO", "formula-uno"},
		{"FAST AND FURIOUS", "fast-and-furious"},
		{"SKYLINE/SUPRA", "skyline-supra"},
		{"MOST WANTED", "most-wanted"},
		{"Fórmula Ñandú", "formula-nandu"},
		{"  --Hello   World!--  ", "hello-world"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	s := Generate("Colección Edición Limitada")
	assert.Equal(t, "coleccion-edicion-limitada", s)
	assert.Equal(t, s, Generate(s))
}
