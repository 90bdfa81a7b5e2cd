package joincode

import (
	"bytes"
	"image/png"
	"testing"
)

func TestGenerate_ValidPNG(t *testing.T) {
	b, err := Generate("http://localhost:8080/join/room-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}
	wantSide := (modules + 2*quiet) * scale
	if got := img.Bounds().Dx(); got != wantSide {
		t.Fatalf("width = %d, want %d", got, wantSide)
	}
	if got := img.Bounds().Dy(); got != wantSide {
		t.Fatalf("height = %d, want %d", got, wantSide)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate("http://localhost:8080/join/room-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate("http://localhost:8080/join/room-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same URL produced different images")
	}

	c, err := Generate("http://localhost:8080/join/room-2")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Fatal("different URLs produced identical images")
	}
}

func TestBuildGrid_FixedStructures(t *testing.T) {
	grid := buildGrid("any-url")

	// Finder corners are dark.
	corners := [][2]int{{0, 0}, {modules - 7, 0}, {0, modules - 7}}
	for _, c := range corners {
		if !grid[c[1]][c[0]] {
			t.Fatalf("finder ring missing at %v", c)
		}
		if !grid[c[1]+3][c[0]+3] {
			t.Fatalf("finder core missing at %v", c)
		}
		if grid[c[1]+1][c[0]+1] {
			t.Fatalf("finder gap filled at %v", c)
		}
	}

	// Timing strips alternate.
	for i := 8; i < modules-8; i++ {
		if grid[6][i] != (i%2 == 0) {
			t.Fatalf("row timing broken at %d", i)
		}
		if grid[i][6] != (i%2 == 0) {
			t.Fatalf("column timing broken at %d", i)
		}
	}
}
