package pipeline

import (
	"errors"
	"testing"
)

func constantFloat(w, h int, v float32) *FloatBuffer {
	b, _ := NewFloatBuffer(w, h)
	for i := range b.Pix {
		b.Pix[i] = v
	}
	return b
}

func TestPartitionRows_Disjoint(t *testing.T) {
	for rows := 1; rows <= 70; rows++ {
		for units := 0; units <= 12; units++ {
			spans := partitionRows(rows, units)
			seen := make([]int, rows)
			for _, s := range spans {
				if s.Start >= s.End {
					t.Fatalf("rows=%d units=%d: empty span %+v", rows, units, s)
				}
				for r := s.Start; r < s.End; r++ {
					seen[r]++
				}
			}
			for r, n := range seen {
				if n != 1 {
					t.Fatalf("rows=%d units=%d: row %d covered %d times", rows, units, r, n)
				}
			}
		}
	}
	if spans := partitionRows(0, 4); spans != nil {
		t.Fatalf("expected no spans for zero rows, got %v", spans)
	}
}

func TestCompose_LandscapeLetterbox(t *testing.T) {
	plan, err := Plan(800, 600, square(300))
	if err != nil {
		t.Fatal(err)
	}
	scaled := constantFloat(plan.ScaledWidth, plan.ScaledHeight, 200)

	for _, workers := range []int{1, 3, 8, 64} {
		canvas, err := Compositor{Workers: workers}.Compose(scaled, plan, Black)
		if err != nil {
			t.Fatal(err)
		}
		if canvas.Width != 300 || canvas.Height != 300 || len(canvas.Pix) != 300*300*3 {
			t.Fatalf("unexpected canvas %dx%d (%d samples)", canvas.Width, canvas.Height, len(canvas.Pix))
		}
		for y := 0; y < 300; y++ {
			want := uint8(0)
			if y >= 37 && y < 37+225 {
				want = 200
			}
			for x := 0; x < 300; x++ {
				for ch := 0; ch < Channels; ch++ {
					if got := canvas.At(y, x, ch); got != want {
						t.Fatalf("workers=%d (%d,%d,%d): expected %d, got %d", workers, y, x, ch, want, got)
					}
				}
			}
		}
	}
}

func TestCompose_BackgroundColor(t *testing.T) {
	plan, err := Plan(400, 800, square(30))
	if err != nil {
		t.Fatal(err)
	}
	bg := RGB{R: 1, G: 2, B: 3}
	canvas, err := Compositor{Workers: 4}.Compose(constantFloat(plan.ScaledWidth, plan.ScaledHeight, 9), plan, bg)
	if err != nil {
		t.Fatal(err)
	}
	// left pad column
	if canvas.At(10, 0, 0) != 1 || canvas.At(10, 0, 1) != 2 || canvas.At(10, 0, 2) != 3 {
		t.Fatalf("expected background in pad region")
	}
	if canvas.At(10, plan.OffsetX, 0) != 9 {
		t.Fatalf("expected image at offset column")
	}
}

func TestCompose_RoundsAndClamps(t *testing.T) {
	plan := GeometryPlan{ScaledWidth: 5, ScaledHeight: 1, CanvasWidth: 5, CanvasHeight: 1}
	scaled := &FloatBuffer{Width: 5, Height: 1, Pix: []float32{
		-3, 0.49, 0.5, 1.5, 254.5,
		255.4, 300, 127.5, 2.5, 99.49,
		0, 0, 0, 0, 0,
	}}
	canvas, err := Compositor{}.Compose(scaled, plan, Black)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint8{0, 0, 1, 2, 255, 255, 255, 128, 3, 99, 0, 0, 0, 0, 0}
	for i, w := range want {
		if canvas.Pix[i] != w {
			t.Fatalf("sample %d: expected %d, got %d", i, w, canvas.Pix[i])
		}
	}
}

func TestCompose_DoesNotMutateScaled(t *testing.T) {
	plan, _ := Plan(10, 20, square(40))
	scaled := constantFloat(plan.ScaledWidth, plan.ScaledHeight, 7.7)
	if _, err := (Compositor{Workers: 2}).Compose(scaled, plan, Black); err != nil {
		t.Fatal(err)
	}
	for _, v := range scaled.Pix {
		if v != 7.7 {
			t.Fatalf("scaled buffer modified: %f", v)
		}
	}
}

func TestCompose_RejectsMismatchedPlan(t *testing.T) {
	plan := GeometryPlan{ScaledWidth: 4, ScaledHeight: 4, OffsetX: 2, CanvasWidth: 5, CanvasHeight: 4}
	_, err := Compositor{}.Compose(constantFloat(4, 4, 1), plan, Black)
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
	_, err = Compositor{}.Compose(constantFloat(3, 4, 1), GeometryPlan{ScaledWidth: 4, ScaledHeight: 4, CanvasWidth: 4, CanvasHeight: 4}, Black)
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
	if _, err := (Compositor{}).Compose(nil, plan, Black); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
}
