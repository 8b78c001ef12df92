package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "''"},
		{"plain path", "/downloads/Air/Moon_Safari/01.flac", "/downloads/Air/Moon_Safari/01.flac"},
		{"spaces", "/downloads/Air/Moon Safari", "'/downloads/Air/Moon Safari'"},
		{"apostrophe", "/downloads/Air/La Femme d'Argent.flac", `'/downloads/Air/La Femme d'"'"'Argent.flac'`},
		{"brackets", "/downloads/Album [FLAC]", "'/downloads/Album [FLAC]'"},
		{"dollar", "$HOME/Music", "'$HOME/Music'"},
		{"ampersand", "Simon & Garfunkel", "'Simon & Garfunkel'"},
		{"flag", "-q", "-q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellQuote(tt.input))
		})
	}
}

func TestCommandLine(t *testing.T) {
	got := CommandLine("beet", "-c", "beets_config.yaml", "import", "-q", "-d", "/music", "/downloads/Moon Safari")
	assert.Equal(t, "beet -c beets_config.yaml import -q -d /music '/downloads/Moon Safari'", got)
}
