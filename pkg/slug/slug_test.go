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
		{"Nike Pegasus 41", "nike-pegasus-41"},
		{"ALL UPPER CASE", "all-upper-case"},
		{"Saucony Endorphin Pro 4 (Men's)", "saucony-endorphin-pro-4-mens"},
		{"Asics Gel-Nimbus  26", "asics-gel-nimbus-26"},
		{"Mizuno Wave Rider Éclair", "mizuno-wave-rider-eclair"},
		{"Brooks Ghost – 16", "brooks-ghost-16"},
		{"  hoka_clifton  ", "hoka_clifton"},
		{"New Balance 1080v14!!!", "new-balance-1080v14"},
		{"---", ""},
		{"", ""},
		{"日本", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_IsValid(t *testing.T) {
	for _, in := range []string{"Adidas Adizero Boston 12", "On Cloudmonster Hyper", "Puma Deviate Nitro 3"} {
		assert.True(t, Valid(Generate(in)), in)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"nike-pegasus-41", true},
		{"Nike_Pegasus", true},
		{"", false},
		{"nike pegasus", false},
		{"../etc/passwd", false},
		{"nike%20pegasus", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.input))
		})
	}
}
