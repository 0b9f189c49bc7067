package lockandkey

import (
	"strings"
	"testing"
	"time"

	"github.com/shillcollin/skymsg/core"
)

// Vectors captured from the live protocol exchange.
var goldenVectors = []struct {
	challenge string
	want      string
}{
	{"1462882636", "79b796ca5aa4264e2e894539dec80662"},
	{"1446776748", "d7caa3b9cbe074e195051419754ce6da"},
	{"0", "7e30ab8c9305229bc07f71417ab07032"},
	// 6-char challenge: the padded text is already 8-aligned.
	{"abc123", "3e53ff5d4d493011714fcc35e721ae2c"},
}

func TestComputeGolden(t *testing.T) {
	for _, v := range goldenVectors {
		got, err := Compute(v.challenge, AppID, Key)
		if err != nil {
			t.Fatalf("Compute(%q): %v", v.challenge, err)
		}
		if got != v.want {
			t.Errorf("Compute(%q) = %s, want %s", v.challenge, got, v.want)
		}
	}
}

func TestComputeShape(t *testing.T) {
	challenges := []string{"1", "12345", "1462882636", "a-longer-challenge-string"}
	for _, ch := range challenges {
		first, err := Compute(ch, AppID, Key)
		if err != nil {
			t.Fatalf("Compute(%q): %v", ch, err)
		}
		if len(first) != 32 {
			t.Fatalf("proof length = %d, want 32", len(first))
		}
		if first != strings.ToLower(first) {
			t.Fatalf("proof %q is not lowercase", first)
		}
		if strings.Trim(first, "0123456789abcdef") != "" {
			t.Fatalf("proof %q contains non-hex characters", first)
		}
		second, err := Compute(ch, AppID, Key)
		if err != nil {
			t.Fatalf("Compute(%q) second call: %v", ch, err)
		}
		if first != second {
			t.Fatalf("Compute(%q) not deterministic: %s vs %s", ch, first, second)
		}
	}
}

func TestComputeEmptyInput(t *testing.T) {
	_, err := Compute("", "", "key")
	if !core.IsMalformedInput(err) {
		t.Fatalf("expected malformed_input, got %v", err)
	}
}

func TestHeader(t *testing.T) {
	at := time.Unix(1462882636, 0)
	header, err := Header(at)
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	want := "appId=" + AppID + "; time=1462882636; lockAndKeyResponse=79b796ca5aa4264e2e894539dec80662"
	if header != want {
		t.Fatalf("Header = %q, want %q", header, want)
	}
}
