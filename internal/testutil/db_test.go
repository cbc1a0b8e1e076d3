package testutil

import (
	"context"
	"testing"
	"time"

	"datasetprep/internal/manifest"
)

func TestSetupTestManifest(t *testing.T) {
	store := SetupTestManifest(t)
	ctx := context.Background()

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("failed to count manifest: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("expected empty manifest, got %v", counts)
	}

	err = store.Record(ctx, manifest.Entry{
		RelPath: "a.png", OutputPath: "out/a.jpg", Size: 10,
		ModTime: time.Unix(100, 0), Status: manifest.StatusProcessed,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	e, err := store.Lookup(ctx, "a.png")
	if err != nil || e == nil {
		t.Fatalf("lookup: %v %v", e, err)
	}
}

func TestGenerateTestImage_Decodes(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []string{"jpeg", "png", "gif"} {
		path := WriteTestImage(t, dir, "img."+format, format, 40, 20)
		img := DecodeFile(t, path)
		if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
			t.Errorf("%s: got %dx%d", format, b.Dx(), b.Dy())
		}
	}
}
