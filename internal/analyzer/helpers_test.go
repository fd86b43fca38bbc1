package analyzer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeCompleter records requests and replays a canned reply.
type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []*ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req *ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeCompleter) last() *ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func newTestAnalyzer(t *testing.T, fake *fakeCompleter, opts ...Option) *FoodAnalyzer {
	t.Helper()
	a, err := New(Config{APIKey: "test-key"}, append([]Option{WithCompleter(fake)}, opts...)...)
	require.NoError(t, err)
	return a
}
