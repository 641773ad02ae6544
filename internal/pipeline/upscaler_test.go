package pipeline

import (
	"errors"
	"image"
	"testing"
	"strings"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Brownie44l1/superres/internal/imaging"
	"github.com/Brownie44l1/superres/internal/infer"
	"github.com/Brownie44l1/superres/internal/infer/infertest"
)

func TestUpscaler(t *testing.T) {
	b := srBackend(8, 32)
	u, err := NewUpscaler(b, "model.onnx", imaging.Std{}, quietLogger())
	if err != nil {
		t.Fatalf("NewUpscaler: %v", err)
	}

	if w, h := u.InputSize(); w != 8 || h != 8 {
		t.Errorf("InputSize = %dx%d", w, h)
	}
	info := u.Info()
	if info.Model != "model.onnx" || info.Outputs[0].Name != "sr" || b.Networks[0].BatchSize() != 1 {
		t.Errorf("info = %+v", info)
	}

	for i := 1; i <= 2; i++ {
		out, _, err := u.Upscale(image.NewRGBA(image.Rect(0, 0, 8, 8)))
		if err != nil {
			t.Fatalf("Upscale: %v", err)
		}
		if out.Bounds().Dx() != 32 {
			t.Errorf("result is %v", out.Bounds())
		}
		if r, _, _, _ := out.At(0, 0).RGBA(); int(r>>8) != i {
			t.Errorf("call %d: red = %d", i, r>>8)
		}
	}

	_, _, err = u.Upscale(image.NewRGBA(image.Rect(0, 0, 9, 8)))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("err = %v, want ErrSizeMismatch", err)
	}
	if calls := b.LastRequest().Calls; calls != 2 {
		t.Errorf("Infer called %d times, want 2", calls)
	}

	if err := u.Close(); err != nil {
		t.Fatal(err)
	}
	if !b.LastRequest().Closed {
		t.Error("request not closed")
	}
}

func TestUpscalerLogsOutputSizeOnce(t *testing.T) {
	log, hook := test.NewNullLogger()
	u, err := NewUpscaler(srBackend(8, 32), "model.onnx", imaging.Std{}, log)
	if err != nil {
		t.Fatalf("NewUpscaler: %v", err)
	}
	defer u.Close()

	for i := 0; i < 3; i++ {
		if _, _, err := u.Upscale(image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
			t.Fatalf("Upscale: %v", err)
		}
	}
	var sizeLines int
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Output size") {
			sizeLines++
		}
	}
	if sizeLines != 1 {
		t.Errorf("output size logged %d times, want 1", sizeLines)
	}
}

func TestUpscalerCloseReleasesEverything(t *testing.T) {
	boom := errors.New("boom")
	b := srBackend(8, 32)
	b.CloseErr = boom
	u, err := NewUpscaler(b, "model.onnx", imaging.Std{}, quietLogger())
	if err != nil {
		t.Fatalf("NewUpscaler: %v", err)
	}

	if err := u.Close(); !errors.Is(err, boom) {
		t.Errorf("Close = %v, want boom", err)
	}
	if !b.LastRequest().Closed || b.ExecutablesClosed != 1 {
		t.Errorf("request closed %v, executables closed %d", b.LastRequest().Closed, b.ExecutablesClosed)
	}
}

func TestNewUpscalerRejectsTopology(t *testing.T) {
	b := srBackend(8, 32)
	b.InputPorts = append(b.InputPorts, infertest.Port("bic", 1, 3, 32, 32), infertest.Port("x", 1, 3, 8, 8))
	if _, err := NewUpscaler(b, "model.onnx", nil, quietLogger()); !errors.Is(err, ErrUnsupportedTopology) {
		t.Errorf("err = %v, want ErrUnsupportedTopology", err)
	}
	if len(b.Requests) != 0 {
		t.Error("request created")
	}
}

func TestMeasure(t *testing.T) {
	b := srBackend(4, 4)
	exe, _ := b.LoadNetwork(mustRead(t, b))
	req, _ := exe.CreateInferRequest()

	lat, err := measure(req, 3, fixedClock())
	if err != nil {
		t.Fatal(err)
	}
	if len(lat.PerCall) != 3 || lat.Total != 30 || lat.Average != 10 {
		t.Errorf("latency = %+v", lat)
	}
}

func mustRead(t *testing.T, b *infertest.Backend) infer.Network {
	t.Helper()
	n, err := b.ReadNetwork("model.onnx", "model.json")
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// fixedClock advances 10ms on every second reading.
func fixedClock() func() time.Time {
	now := time.Unix(0, 0)
	var n int
	return func() time.Time {
		n++
		if n%2 == 0 {
			now = now.Add(10 * time.Millisecond)
		}
		return now
	}
}
