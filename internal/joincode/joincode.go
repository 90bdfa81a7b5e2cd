// Package joincode renders the PNG served at /join/{session}.png.
//
// The image is a QR-styled visual token for sharing a room: finder squares in
// three corners, timing strips, and a field of data modules derived
// deterministically from the join URL, so the same room always renders the
// same pattern. It is NOT a scannable QR code; phones join by typing the
// session id, and the image exists so a room can be recognized at a glance
// when pinned next to a screen.
package joincode

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

const (
	// modules is the width/height of the pattern grid.
	modules = 29
	// scale is the pixel size of one module.
	scale = 8
	// quiet is the white border, in modules, around the pattern.
	quiet = 2
)

var (
	dark  = color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	light = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Generate renders the join image for joinURL and returns it PNG-encoded.
func Generate(joinURL string) ([]byte, error) {
	grid := buildGrid(joinURL)

	side := (modules + 2*quiet) * scale
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: light}, image.Point{}, draw.Src)

	for y := 0; y < modules; y++ {
		for x := 0; x < modules; x++ {
			if !grid[y][x] {
				continue
			}
			px := (x + quiet) * scale
			py := (y + quiet) * scale
			r := image.Rect(px, py, px+scale, py+scale)
			draw.Draw(img, r, &image.Uniform{C: dark}, image.Point{}, draw.Src)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildGrid lays out finder squares, timing strips, and URL-seeded data
// modules on a modules×modules boolean grid.
func buildGrid(joinURL string) [modules][modules]bool {
	var grid [modules][modules]bool

	// Finder patterns in three corners.
	drawFinder(&grid, 0, 0)
	drawFinder(&grid, modules-7, 0)
	drawFinder(&grid, 0, modules-7)

	// Timing strips between the finders.
	for i := 8; i < modules-8; i++ {
		grid[6][i] = i%2 == 0
		grid[i][6] = i%2 == 0
	}

	// Data modules from a URL-seeded xorshift stream. Cells claimed by the
	// fixed structures above stay as they are.
	h := fnv.New64a()
	_, _ = h.Write([]byte(joinURL))
	state := h.Sum64()
	if state == 0 {
		state = 0x9e3779b97f4a7c15
	}
	for y := 0; y < modules; y++ {
		for x := 0; x < modules; x++ {
			if reserved(x, y) {
				continue
			}
			state ^= state << 13
			state ^= state >> 7
			state ^= state << 17
			grid[y][x] = state&1 == 1
		}
	}
	return grid
}

// drawFinder stamps the 7×7 concentric finder square with its top-left
// module at (ox, oy).
func drawFinder(grid *[modules][modules]bool, ox, oy int) {
	for dy := 0; dy < 7; dy++ {
		for dx := 0; dx < 7; dx++ {
			onRing := dx == 0 || dx == 6 || dy == 0 || dy == 6
			inCore := dx >= 2 && dx <= 4 && dy >= 2 && dy <= 4
			grid[oy+dy][ox+dx] = onRing || inCore
		}
	}
}

// reserved reports whether (x, y) belongs to a finder pattern (plus its
// one-module separator) or a timing strip.
func reserved(x, y int) bool {
	if x <= 7 && y <= 7 {
		return true
	}
	if x >= modules-8 && y <= 7 {
		return true
	}
	if x <= 7 && y >= modules-8 {
		return true
	}
	return x == 6 || y == 6
}
