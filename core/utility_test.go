package core_test

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/berylllium/lise/core"
)

func TestSliceUint32(t *testing.T) {
	data := make([]byte, 16)
	for idx := 0; idx < 4; idx++ {
		binary.NativeEndian.PutUint32(data[idx*4:], uint32(idx+1))
	}

	words := core.SliceUint32(data)
	if len(words) != 4 {
		t.Fatalf("expected 4 words, got %d", len(words))
	}
	for idx, word := range words {
		if word != uint32(idx+1) {
			t.Errorf("word %d is %d, expected %d", idx, word, idx+1)
		}
	}
}

func TestGetPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff})
		}
	}

	pixels, err := core.GetPixels(img, 16)
	if err != nil {
		t.Fatal(err)
	}
	if len(pixels) != 4*4*4 {
		t.Fatalf("expected %d bytes, got %d", 4*4*4, len(pixels))
	}
	if pixels[0] != 0x20 || pixels[1] != 0x40 || pixels[2] != 0x80 || pixels[3] != 0xff {
		t.Errorf("first pixel came out as %v", pixels[:4])
	}
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Medium(b *testing.B) {
	data := make([]byte, 1000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}
