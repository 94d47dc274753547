package overlay

import "image/color"

// rampStop is one anchor of the value-to-color gradient.
type rampStop struct {
	pos     float64 // normalized 0..1
	r, g, b uint8
}

// dataRamp is the gradient used for single-band variables: deep blue through
// teal and yellow to red, matching the palette of the published map tiles.
var dataRamp = []rampStop{
	{0.00, 38, 48, 130},
	{0.25, 37, 116, 169},
	{0.50, 103, 199, 165},
	{0.75, 247, 209, 61},
	{1.00, 207, 46, 49},
}

// rampColor maps a normalized value 0..1 to a gradient color.
func rampColor(t float64) color.NRGBA {
	if t <= 0 {
		s := dataRamp[0]
		return color.NRGBA{R: s.r, G: s.g, B: s.b, A: 255}
	}
	if t >= 1 {
		s := dataRamp[len(dataRamp)-1]
		return color.NRGBA{R: s.r, G: s.g, B: s.b, A: 255}
	}

	for i := 1; i < len(dataRamp); i++ {
		if t > dataRamp[i].pos {
			continue
		}
		lo, hi := dataRamp[i-1], dataRamp[i]
		f := (t - lo.pos) / (hi.pos - lo.pos)
		return color.NRGBA{
			R: uint8(float64(lo.r) + f*(float64(hi.r)-float64(lo.r))),
			G: uint8(float64(lo.g) + f*(float64(hi.g)-float64(lo.g))),
			B: uint8(float64(lo.b) + f*(float64(hi.b)-float64(lo.b))),
			A: 255,
		}
	}

	s := dataRamp[len(dataRamp)-1]
	return color.NRGBA{R: s.r, G: s.g, B: s.b, A: 255}
}
