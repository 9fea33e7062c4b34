package processing_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"focal/internal/imagecodec"
	"focal/internal/processing"
	"focal/internal/queue"
	"focal/internal/testsupport"
)

const testPresetXMP = `<?xml version="1.0" encoding="UTF-8"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:crs="http://ns.adobe.com/camera-raw-settings/1.0/"
    crs:Exposure="+0.30"
    crs:Contrast="+10"
    crs:Vibrance="+15"/>
 </rdf:RDF>
</x:xmpmeta>`

func writeTestPreset(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir preset dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(testPresetXMP), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
}

func TestExecuteProcessesFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeTestPreset(t, cfg.Paths.PresetPath)
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "shoot")
	first := filepath.Join(folder, "one.jpg")
	second := filepath.Join(folder, "two.png")
	testsupport.WriteJPEG(t, first, 8, 8, color.NRGBA{R: 120, G: 100, B: 90, A: 255})
	testsupport.WritePNG(t, second, 8, 8, color.NRGBA{R: 60, G: 80, B: 120, A: 255})

	job := testsupport.NewFolderJob(t, store, folder, []string{first, second})

	processor := processing.New(cfg, nil)
	ctx := context.Background()
	if err := processor.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := processor.Execute(ctx, job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	outcomes, err := job.Outcomes()
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, outcome := range outcomes {
		if outcome.State != queue.FileStateDone {
			t.Fatalf("unexpected outcome: %#v", outcome)
		}
		if _, err := os.Stat(outcome.Output); err != nil {
			t.Fatalf("expected output file %q: %v", outcome.Output, err)
		}
		if filepath.Dir(outcome.Output) != filepath.Join(folder, cfg.Output.Folder) {
			t.Fatalf("output landed outside processed folder: %q", outcome.Output)
		}
		if filepath.Ext(outcome.Output) != ".tif" {
			t.Fatalf("expected tiff output, got %q", outcome.Output)
		}
	}
}

func TestExecuteRecordsMixedOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeTestPreset(t, cfg.Paths.PresetPath)
	cfg.Processing.MaxRetries = 2
	cfg.Processing.RetryBackoffSeconds = 0
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "mixed")
	good := filepath.Join(folder, "good.jpg")
	corrupt := filepath.Join(folder, "corrupt.jpg")
	unsupported := filepath.Join(folder, "notes.txt")
	testsupport.WriteJPEG(t, good, 4, 4, color.NRGBA{R: 200, G: 180, B: 160, A: 255})
	if err := os.WriteFile(corrupt, []byte{0xFF, 0xD8, 0xFF}, 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if err := os.WriteFile(unsupported, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write unsupported file: %v", err)
	}

	job := testsupport.NewFolderJob(t, store, folder, []string{good, corrupt, unsupported})

	processor := processing.New(cfg, nil)
	if err := processor.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	outcomes, err := job.Outcomes()
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	byPath := make(map[string]queue.FileOutcome, len(outcomes))
	for _, outcome := range outcomes {
		byPath[filepath.Base(outcome.Path)] = outcome
	}

	if byPath["good.jpg"].State != queue.FileStateDone {
		t.Fatalf("expected good file done, got %#v", byPath["good.jpg"])
	}
	failed := byPath["corrupt.jpg"]
	if failed.State != queue.FileStateFailed {
		t.Fatalf("expected corrupt file failed, got %#v", failed)
	}
	if failed.Attempts != 2 {
		t.Fatalf("expected corrupt file retried, got %d attempts", failed.Attempts)
	}
	skipped := byPath["notes.txt"]
	if skipped.State != queue.FileStateSkipped {
		t.Fatalf("expected unsupported file skipped, got %#v", skipped)
	}
	if skipped.Attempts != 0 {
		t.Fatalf("expected no attempts for skipped file, got %d", skipped.Attempts)
	}
}

func TestExecuteFailsWhenAllFilesFail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeTestPreset(t, cfg.Paths.PresetPath)
	cfg.Processing.RetryFailed = false
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "broken")
	corrupt := filepath.Join(folder, "corrupt.jpg")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("mkdir folder: %v", err)
	}
	if err := os.WriteFile(corrupt, []byte{0x00}, 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	job := testsupport.NewFolderJob(t, store, folder, []string{corrupt})

	processor := processing.New(cfg, nil)
	if err := processor.Execute(context.Background(), job); err == nil {
		t.Fatal("expected error when every file fails")
	}
}

func TestExecuteAvoidsOverwritingExistingOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeTestPreset(t, cfg.Paths.PresetPath)
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "rerun")
	source := filepath.Join(folder, "photo.jpg")
	testsupport.WriteJPEG(t, source, 4, 4, color.NRGBA{R: 90, G: 90, B: 90, A: 255})

	existing := filepath.Join(folder, cfg.Output.Folder, "photo.tif")
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatalf("mkdir output: %v", err)
	}
	if err := os.WriteFile(existing, []byte("earlier run"), 0o644); err != nil {
		t.Fatalf("write existing output: %v", err)
	}

	job := testsupport.NewFolderJob(t, store, folder, []string{source})
	processor := processing.New(cfg, nil)
	if err := processor.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	outcomes, err := job.Outcomes()
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if outcomes[0].Output == existing {
		t.Fatal("expected unique output path for rerun")
	}
	data, err := os.ReadFile(existing)
	if err != nil || string(data) != "earlier run" {
		t.Fatalf("expected existing output untouched: %v %q", err, data)
	}
}

func TestPresetParsedOnceAndShared(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeTestPreset(t, cfg.Paths.PresetPath)
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "shoot")
	input := filepath.Join(folder, "one.jpg")
	testsupport.WriteJPEG(t, input, 8, 8, color.NRGBA{R: 120, G: 100, B: 90, A: 255})

	job := testsupport.NewFolderJob(t, store, folder, []string{input})

	processor := processing.New(cfg, nil)
	ctx := context.Background()
	if err := processor.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	// The parse happens once; later executions must not go back to disk.
	if err := os.Remove(cfg.Paths.PresetPath); err != nil {
		t.Fatalf("remove preset: %v", err)
	}

	if err := processor.Execute(ctx, job); err != nil {
		t.Fatalf("Execute failed after preset file removal: %v", err)
	}
	outcomes, err := job.Outcomes()
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].State != queue.FileStateDone {
		t.Fatalf("unexpected outcomes: %#v", outcomes)
	}
	if !processor.HealthCheck(ctx).Ready {
		t.Fatal("expected cached preset to keep the stage healthy")
	}
}

func TestPrepareFailsWithoutPreset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewFolderJob(t, store, testsupport.BaseDir(cfg), nil)

	processor := processing.New(cfg, nil)
	if err := processor.Prepare(context.Background(), job); err == nil {
		t.Fatal("expected error for missing preset")
	}
}

func TestExecuteWritesJPEGWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOutputFormat("jpeg"))
	writeTestPreset(t, cfg.Paths.PresetPath)
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "shoot")
	input := filepath.Join(folder, "one.png")
	testsupport.WritePNG(t, input, 8, 8, color.NRGBA{R: 90, G: 110, B: 130, A: 255})

	job := testsupport.NewFolderJob(t, store, folder, []string{input})

	processor := processing.New(cfg, nil)
	ctx := context.Background()
	if err := processor.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := processor.Execute(ctx, job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	outcomes, err := job.Outcomes()
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].State != queue.FileStateDone {
		t.Fatalf("unexpected outcomes: %#v", outcomes)
	}
	if filepath.Ext(outcomes[0].Output) != ".jpg" {
		t.Fatalf("expected jpeg output, got %q", outcomes[0].Output)
	}
	if _, err := imagecodec.Decode(outcomes[0].Output); err != nil {
		t.Fatalf("decode jpeg output: %v", err)
	}
}

func TestExecuteBrightensWithPositiveExposure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exposureOnly := `<?xml version="1.0" encoding="UTF-8"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:crs="http://ns.adobe.com/camera-raw-settings/1.0/"
    crs:Exposure="+1.00"/>
 </rdf:RDF>
</x:xmpmeta>`
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.PresetPath), 0o755); err != nil {
		t.Fatalf("mkdir preset dir: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.PresetPath, []byte(exposureOnly), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "shoot")
	input := filepath.Join(folder, "dark.jpg")
	testsupport.WriteJPEG(t, input, 16, 16, color.NRGBA{R: 70, G: 70, B: 70, A: 255})

	job := testsupport.NewFolderJob(t, store, folder, []string{input})

	processor := processing.New(cfg, nil)
	ctx := context.Background()
	if err := processor.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := processor.Execute(ctx, job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	outcomes, err := job.Outcomes()
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].State != queue.FileStateDone {
		t.Fatalf("unexpected outcomes: %#v", outcomes)
	}

	before, err := imagecodec.Decode(input)
	if err != nil {
		t.Fatalf("decode input: %v", err)
	}
	after, err := imagecodec.Decode(outcomes[0].Output)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got, want := meanLuminance(after), meanLuminance(before); got <= want {
		t.Fatalf("expected brighter output, got mean %.4f vs input %.4f", got, want)
	}
}

func meanLuminance(buf *imagecodec.PixelBuffer) float64 {
	var sum float64
	for i := range buf.R {
		sum += float64(buf.R[i]) + float64(buf.G[i]) + float64(buf.B[i])
	}
	return sum / float64(3*len(buf.R))
}

func TestHealthCheckReflectsPreset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	processor := processing.New(cfg, nil)

	health := processor.HealthCheck(context.Background())
	if health.Ready {
		t.Fatal("expected unhealthy without preset")
	}

	writeTestPreset(t, cfg.Paths.PresetPath)
	health = processor.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected healthy with preset: %#v", health)
	}
}
