package captcha

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	imageWidth  = 120
	imageHeight = 40

	noiseLineCount = 5
	noiseDotCount  = 50

	// glyphs are drawn from the 7x13 bitmap face, then scaled up before
	// rotation so the edges stay readable.
	glyphHeight    = 30
	maxTiltDegrees = 15
)

// renderImage rasterizes the code over a noisy background and returns it as a
// base64 PNG data URI. Visual noise uses math/rand; only the code itself
// needs a CSPRNG.
func renderImage(code string) (string, error) {
	canvas := imaging.New(imageWidth, imageHeight, randomChannelColor(225, 250))

	for i := 0; i < noiseLineCount; i++ {
		drawLine(canvas,
			image.Pt(rand.IntN(imageWidth), rand.IntN(imageHeight)),
			image.Pt(rand.IntN(imageWidth), rand.IntN(imageHeight)),
			randomChannelColor(100, 180))
	}

	for i := 0; i < noiseDotCount; i++ {
		drawDot(canvas, rand.IntN(imageWidth), rand.IntN(imageHeight), randomChannelColor(100, 200))
	}

	slotWidth := imageWidth / (len(code) + 1)
	for i := 0; i < len(code); i++ {
		glyph := renderGlyph(code[i], randomChannelColor(20, 110))
		tilt := (rand.Float64()*2 - 1) * maxTiltDegrees
		rotated := imaging.Rotate(glyph, tilt, color.NRGBA{})

		x := slotWidth/2 + i*slotWidth
		y := (imageHeight - rotated.Bounds().Dy()) / 2
		canvas = imaging.Overlay(canvas, rotated, image.Pt(x, y), 1.0)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// renderGlyph draws one character from the bitmap face onto a transparent
// tile and scales it to display height.
func renderGlyph(ch byte, col color.NRGBA) *image.NRGBA {
	face := basicfont.Face7x13
	tile := imaging.New(face.Advance+2, face.Height+2, color.NRGBA{})

	drawer := font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(1, face.Ascent),
	}
	drawer.DrawString(string(ch))

	return imaging.Resize(tile, 0, glyphHeight, imaging.NearestNeighbor)
}

// drawLine plots a straight segment by stepping along the longer axis.
func drawLine(img *image.NRGBA, from, to image.Point, col color.NRGBA) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.SetNRGBA(from.X, from.Y, col)
		return
	}
	for i := 0; i <= steps; i++ {
		x := from.X + dx*i/steps
		y := from.Y + dy*i/steps
		img.SetNRGBA(x, y, col)
		img.SetNRGBA(x, y+1, col)
	}
}

// drawDot fills a 2x2 speck so the noise survives client-side downscaling.
func drawDot(img *image.NRGBA, x, y int, col color.NRGBA) {
	img.SetNRGBA(x, y, col)
	img.SetNRGBA(x+1, y, col)
	img.SetNRGBA(x, y+1, col)
	img.SetNRGBA(x+1, y+1, col)
}

// randomChannelColor picks each RGB channel independently in [lo, hi].
func randomChannelColor(lo, hi int) color.NRGBA {
	span := hi - lo + 1
	return color.NRGBA{
		R: uint8(lo + rand.IntN(span)),
		G: uint8(lo + rand.IntN(span)),
		B: uint8(lo + rand.IntN(span)),
		A: 255,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
