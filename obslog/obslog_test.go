package obslog

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestForPreservesRootLevel(t *testing.T) {
	l := For("registry")
	if l.GetLevel() != Root().GetLevel() {
		t.Errorf("For inherited level %v, want %v", l.GetLevel(), Root().GetLevel())
	}
}

func TestSetLevelDefaultsOnUnrecognizedValue(t *testing.T) {
	defer SetLevel("info") // leave the logger at info, not debug, for other tests

	SetLevel("not-a-real-level")
	if got := Root().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("SetLevel(garbage) left level %v, want %v", got, zerolog.InfoLevel)
	}

	SetLevel("debug")
	if got := Root().GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("SetLevel(debug) left level %v, want %v", got, zerolog.DebugLevel)
	}
}
