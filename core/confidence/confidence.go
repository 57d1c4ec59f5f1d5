// Package confidence interprets hue/saturation/lightness confidence vectors.
//
// A vector encodes a qualitative judgment both as a display color and as a
// semantic triple (domain, conviction, clarity). Interpretation is pure and
// deterministic; vectors are ephemeral and recomputed per widget interaction.
package confidence

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Vector is a hue/saturation/lightness triple. Hue is in degrees [0, 360),
// saturation and lightness are percentages [0, 100].
type Vector struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
}

// Interpretation is the semantic reading of a vector.
type Interpretation struct {
	Domain     string `json:"domain"`
	Conviction string `json:"conviction"`
	Clarity    string `json:"clarity"`
}

// Hex converts the vector to a 24-bit hex color string such as "#ff0000".
func (v Vector) Hex() string {
	hue := math.Mod(v.Hue, 360)
	if hue < 0 {
		hue += 360
	}

	return colorful.Hsl(hue, v.Saturation/100, v.Lightness/100).Hex()
}

// Interpret maps the vector onto its semantic triple. Buckets are half-open;
// a value sitting exactly on a threshold falls to the lower bucket, except
// lightness exactly 50 which reads as moderately clear.
func (v Vector) Interpret() Interpretation {
	return Interpretation{
		Domain:     domainForHue(v.Hue),
		Conviction: convictionForSaturation(v.Saturation),
		Clarity:    clarityForLightness(v.Lightness),
	}
}

func domainForHue(hue float64) string {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}

	switch {
	case hue < 60:
		return "urgent/time-sensitive"
	case hue < 120:
		return "creative/experimental"
	case hue < 180:
		return "safe/approved-pattern"
	case hue < 240:
		return "data-driven/analytical"
	case hue < 300:
		return "strategic/long-term"
	default:
		return "edge-case/exception"
	}
}

func convictionForSaturation(saturation float64) string {
	switch {
	case saturation > 75:
		return "very strong"
	case saturation > 50:
		return "moderate"
	case saturation > 25:
		return "weak"
	default:
		return "uncertain"
	}
}

func clarityForLightness(lightness float64) string {
	switch {
	case lightness > 70:
		return "very clear"
	case lightness >= 50:
		return "moderately clear"
	case lightness > 30:
		return "somewhat unclear"
	default:
		return "very uncertain"
	}
}
