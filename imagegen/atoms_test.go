package imagegen

import (
	"testing"
)

// TestWrapPNGDataURI tests byte-exact concatenation of the data URI prefix.
func TestWrapPNGDataURI(t *testing.T) {
	got := WrapPNGDataURI("QUJD")
	want := "data:image/png;base64,QUJD"
	if got != want {
		t.Errorf("WrapPNGDataURI(%q) = %q, want %q", "QUJD", got, want)
	}

	// The artifact must not be re-encoded, even when it is not valid base64.
	if got := WrapPNGDataURI("not-base64!"); got != "data:image/png;base64,not-base64!" {
		t.Errorf("WrapPNGDataURI() re-encoded the artifact: %q", got)
	}
}

// TestNormalizeDimension tests the 512 fallback for absent/invalid values.
func TestNormalizeDimension(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		want int
	}{
		{"positive passes through", 768, 768},
		{"zero falls back", 0, 512},
		{"negative falls back", -100, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDimension(tt.dim); got != tt.want {
				t.Errorf("NormalizeDimension(%d) = %d, want %d", tt.dim, got, tt.want)
			}
		})
	}
}

// TestIsBlank tests prompt presence checks.
func TestIsBlank(t *testing.T) {
	tests := []struct {
		prompt string
		want   bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"a red fox", false},
		{" x ", false},
	}

	for _, tt := range tests {
		if got := IsBlank(tt.prompt); got != tt.want {
			t.Errorf("IsBlank(%q) = %v, want %v", tt.prompt, got, tt.want)
		}
	}
}

// TestNewCorrelationID tests that IDs are short and unique enough for logs.
func TestNewCorrelationID(t *testing.T) {
	a := newCorrelationID()
	b := newCorrelationID()

	if len(a) != 8 {
		t.Errorf("newCorrelationID() length = %d, want 8", len(a))
	}
	if a == b {
		t.Error("newCorrelationID() returned duplicate IDs")
	}
}

// TestTruncateText tests log preview shortening.
func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 50); got != "short" {
		t.Errorf("truncateText() = %q, want unchanged", got)
	}
	if got := truncateText("abcdefghij", 4); got != "abcd..." {
		t.Errorf("truncateText() = %q, want %q", got, "abcd...")
	}
}
