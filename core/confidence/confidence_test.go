package confidence

import "testing"

func TestInterpretBuckets(t *testing.T) {
	testCases := []struct {
		name     string
		vector   Vector
		expected Interpretation
	}{
		{
			name:   "urgent very strong very clear",
			vector: Vector{Hue: 0, Saturation: 80, Lightness: 80},
			expected: Interpretation{
				Domain:     "urgent/time-sensitive",
				Conviction: "very strong",
				Clarity:    "very clear",
			},
		},
		{
			name:   "saturation boundary excluded from very strong",
			vector: Vector{Hue: 75, Saturation: 75, Lightness: 50},
			expected: Interpretation{
				Domain:     "creative/experimental",
				Conviction: "moderate",
				Clarity:    "moderately clear",
			},
		},
		{
			name:   "safe analytical midpoints",
			vector: Vector{Hue: 150, Saturation: 60, Lightness: 60},
			expected: Interpretation{
				Domain:     "safe/approved-pattern",
				Conviction: "moderate",
				Clarity:    "moderately clear",
			},
		},
		{
			name:   "strategic weak somewhat unclear",
			vector: Vector{Hue: 250, Saturation: 30, Lightness: 40},
			expected: Interpretation{
				Domain:     "strategic/long-term",
				Conviction: "weak",
				Clarity:    "somewhat unclear",
			},
		},
		{
			name:   "edge case uncertain very uncertain",
			vector: Vector{Hue: 359, Saturation: 25, Lightness: 30},
			expected: Interpretation{
				Domain:     "edge-case/exception",
				Conviction: "uncertain",
				Clarity:    "very uncertain",
			},
		},
		{
			name:   "hue boundary belongs to upper interval",
			vector: Vector{Hue: 60, Saturation: 51, Lightness: 71},
			expected: Interpretation{
				Domain:     "creative/experimental",
				Conviction: "moderate",
				Clarity:    "very clear",
			},
		},
		{
			name:   "analytical boundary",
			vector: Vector{Hue: 180, Saturation: 76, Lightness: 70},
			expected: Interpretation{
				Domain:     "data-driven/analytical",
				Conviction: "very strong",
				Clarity:    "moderately clear",
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.vector.Interpret(); got != testCase.expected {
				t.Fatalf("expected %+v, got %+v", testCase.expected, got)
			}
		})
	}
}

func TestHexKnownColors(t *testing.T) {
	testCases := []struct {
		name     string
		vector   Vector
		expected string
	}{
		{name: "pure red", vector: Vector{Hue: 0, Saturation: 100, Lightness: 50}, expected: "#ff0000"},
		{name: "pure green", vector: Vector{Hue: 120, Saturation: 100, Lightness: 50}, expected: "#00ff00"},
		{name: "pure blue", vector: Vector{Hue: 240, Saturation: 100, Lightness: 50}, expected: "#0000ff"},
		{name: "black", vector: Vector{Hue: 0, Saturation: 0, Lightness: 0}, expected: "#000000"},
		{name: "white", vector: Vector{Hue: 0, Saturation: 0, Lightness: 100}, expected: "#ffffff"},
		{name: "mid gray", vector: Vector{Hue: 180, Saturation: 0, Lightness: 50}, expected: "#808080"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.vector.Hex(); got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestHexNormalizesHueOutsideRange(t *testing.T) {
	wrapped := Vector{Hue: 480, Saturation: 100, Lightness: 50}
	base := Vector{Hue: 120, Saturation: 100, Lightness: 50}

	if wrapped.Hex() != base.Hex() {
		t.Fatalf("expected hue 480 to render like hue 120, got %q and %q", wrapped.Hex(), base.Hex())
	}

	if got := (Vector{Hue: -60, Saturation: 100, Lightness: 50}).Interpret().Domain; got != "edge-case/exception" {
		t.Fatalf("expected negative hue to wrap into the top interval, got %q", got)
	}
}
