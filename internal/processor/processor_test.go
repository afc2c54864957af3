package processor

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/storage/file"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newJob(in, rel string, out model.OutputSpec) model.WatermarkJob {
	return model.WatermarkJob{
		ID:           uuid.New(),
		SourcePath:   filepath.Join(in, rel),
		RelativePath: rel,
		OutputBase:   strings.TrimSuffix(rel, filepath.Ext(rel)),
		Overlay:      solid(20, 10, red),
		Placement:    placement(model.AnchorBottomRight, 20, 80, 5),
		Output:       out,
	}
}

func TestProcess_WritesMirroredOutputs(t *testing.T) {
	in, outDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "sub", "a.jpg"), encodeJPEG(t, solid(100, 80, white)))

	p := New(file.NewStorage(in), file.NewStorage(outDir))
	o := p.Process(newJob(in, filepath.Join("sub", "a.jpg"), output(model.FormatJPEG, model.FormatPNG)))

	if o.Status != model.StatusSuccess {
		t.Fatalf("status = %s (%s), want SUCCESS", o.Status, o.Reason)
	}
	want := []string{
		filepath.Join(outDir, "sub", "a.jpg"),
		filepath.Join(outDir, "sub", "a.png"),
	}
	if len(o.Outputs) != len(want) {
		t.Fatalf("outputs = %v, want %v", o.Outputs, want)
	}
	for i, path := range want {
		if o.Outputs[i] != path {
			t.Errorf("output %d = %s, want %s", i, o.Outputs[i], path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("output missing: %v", err)
		}
	}
	if o.WrittenBytes == 0 || o.SourceBytes == 0 {
		t.Errorf("byte counts not recorded: %+v", o)
	}
	if o.Duration <= 0 {
		t.Errorf("duration not recorded")
	}
}

func TestProcess_CorruptSourceFails(t *testing.T) {
	in, outDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "bad.jpg"), []byte("garbage"))

	p := New(file.NewStorage(in), file.NewStorage(outDir))
	o := p.Process(newJob(in, "bad.jpg", output("", "")))

	if o.Status != model.StatusFailed {
		t.Fatalf("status = %s, want FAILED", o.Status)
	}
	if o.Reason == "" {
		t.Error("failed outcome has no reason")
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("failed job left %d files in the output", len(entries))
	}
}

func TestProcess_MissingSourceFails(t *testing.T) {
	in, outDir := t.TempDir(), t.TempDir()

	p := New(file.NewStorage(in), file.NewStorage(outDir))
	o := p.Process(newJob(in, "gone.png", output("", "")))

	if o.Status != model.StatusFailed {
		t.Fatalf("status = %s, want FAILED", o.Status)
	}
}

func TestProcess_SkipExisting(t *testing.T) {
	in, outDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "a.png"), encodePNG(t, solid(30, 30, white)))
	writeFile(t, filepath.Join(outDir, "a.png"), []byte("previous run"))

	out := output("", "")
	out.SkipExisting = true

	p := New(file.NewStorage(in), file.NewStorage(outDir))
	o := p.Process(newJob(in, "a.png", out))

	if o.Status != model.StatusSkipped || o.Reason != model.ReasonExists {
		t.Fatalf("outcome = %s %q, want SKIPPED %q", o.Status, o.Reason, model.ReasonExists)
	}
	data, _ := os.ReadFile(filepath.Join(outDir, "a.png"))
	if string(data) != "previous run" {
		t.Error("existing output was overwritten")
	}
}

func TestProcess_DryRunWritesNothing(t *testing.T) {
	in, outDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "a.png"), encodePNG(t, solid(30, 30, white)))

	out := output("", model.FormatJPEG)
	out.DryRun = true

	p := New(file.NewStorage(in), file.NewStorage(outDir))
	o := p.Process(newJob(in, "a.png", out))

	if o.Status != model.StatusSuccess {
		t.Fatalf("status = %s (%s), want SUCCESS", o.Status, o.Reason)
	}
	if len(o.Outputs) != 0 {
		t.Errorf("dry run reported outputs %v", o.Outputs)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d files", len(entries))
	}
}

// failingStorage fails every save after the first.
type failingStorage struct {
	*file.Storage
	saves int
}

func (s *failingStorage) Save(subdir, filename string, src io.Reader) (string, error) {
	s.saves++
	if s.saves > 1 {
		return "", errors.New("disk full")
	}
	return s.Storage.Save(subdir, filename, src)
}

func TestProcess_FailedSaveRemovesPartialOutputs(t *testing.T) {
	in, outDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(in, "a.jpg"), encodeJPEG(t, solid(40, 40, white)))

	dest := &failingStorage{Storage: file.NewStorage(outDir)}
	p := New(file.NewStorage(in), dest)
	o := p.Process(newJob(in, "a.jpg", output(model.FormatJPEG, model.FormatPNG)))

	if o.Status != model.StatusFailed {
		t.Fatalf("status = %s, want FAILED", o.Status)
	}
	if !strings.Contains(o.Reason, "disk full") {
		t.Errorf("reason = %q, want the save error", o.Reason)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.jpg")); !os.IsNotExist(err) {
		t.Error("first output was not removed after the second failed")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "logo.png")
	writeFile(t, pngPath, encodePNG(t, solid(12, 6, red)))
	img, err := LoadOverlay(pngPath)
	if err != nil {
		t.Fatalf("LoadOverlay: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 6 {
		t.Errorf("overlay size = %v, want 12x6", img.Bounds().Size())
	}

	jpgPath := filepath.Join(dir, "logo.jpg")
	writeFile(t, jpgPath, encodeJPEG(t, solid(12, 6, red)))
	if _, err := LoadOverlay(jpgPath); !errors.Is(err, ErrOverlayNotPNG) {
		t.Errorf("LoadOverlay(jpg) err = %v, want ErrOverlayNotPNG", err)
	}

	brokenPath := filepath.Join(dir, "broken.png")
	writeFile(t, brokenPath, []byte("nope"))
	var decodeErr *DecodeError
	if _, err := LoadOverlay(brokenPath); !errors.As(err, &decodeErr) {
		t.Errorf("LoadOverlay(broken) err = %v, want DecodeError", err)
	}
}
