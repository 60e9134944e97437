package karaoke_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jorgealamilla/loukai/karaoke"
	"github.com/jorgealamilla/loukai/mux"
)

// create_test.go covers the create data flow SPEC_FULL.md §4.10/§2
// describes: "C14/C10 external encoder -> initial container -> C1 read ->
// C9 attach payload". It fakes the external encoder with a shell script
// that copies a pre-built minimal stem file to the requested output path
// and reports success, so the test exercises Create's own wiring (mux.Mux
// followed by Save) without depending on a real kai-encoder binary.
func TestCreateAttachesPayloadAfterMux(t *testing.T) {
	source, _, _ := buildMinimalStemFile(t)

	scriptPath := filepath.Join(t.TempDir(), "fake-encoder.sh")
	script := "#!/bin/sh\n" +
		"out=\"\"\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  case \"$1\" in\n" +
		"    --out) out=\"$2\"; shift 2 ;;\n" +
		"    *) shift ;;\n" +
		"  esac\n" +
		"done\n" +
		"cp \"$FAKE_ENCODER_SOURCE\" \"$out\"\n" +
		"echo 'RESULT: {\"success\": true}'\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake encoder: %v", err)
	}

	t.Setenv("KAI_ENCODER_BIN", scriptPath)
	t.Setenv("FAKE_ENCODER_SOURCE", source)
	t.Setenv("KAI_CACHE_DIR", t.TempDir())

	scratch, err := mux.NewScratchManager()
	if err != nil {
		t.Fatalf("NewScratchManager: %v", err)
	}

	out := filepath.Join(t.TempDir(), "fresh.stem.m4a")
	req := mux.MuxRequest{
		OutputPath: out,
		Stems: []mux.StemInput{
			{Role: "mixdown", Path: "mix.wav"},
			{Role: "vocals", Path: "vox.wav"},
		},
		VTTPath: "lyrics.vtt",
	}
	song := testSong()

	if err := karaoke.Create(context.Background(), nil, scratch, req, song, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	loaded, err := karaoke.Load(out)
	if err != nil {
		t.Fatalf("Load after Create: %v", err)
	}
	if len(loaded.Lines) != 1 || loaded.Lines[0].Text != "hi there" {
		t.Fatalf("unexpected lines after Create: %+v", loaded.Lines)
	}
	if loaded.ITunesMetadata.Title != "Test Song" {
		t.Errorf("unexpected metadata after Create: %+v", loaded.ITunesMetadata)
	}
}

// TestCreatePropagatesMuxFailure confirms Create never calls Save when the
// encoder itself fails, so a failed mux cannot leave a half-written
// karaoke payload behind.
func TestCreatePropagatesMuxFailure(t *testing.T) {
	scriptPath := filepath.Join(t.TempDir(), "failing-encoder.sh")
	script := "#!/bin/sh\necho 'RESULT: {\"success\": false}'\nexit 1\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake encoder: %v", err)
	}

	t.Setenv("KAI_ENCODER_BIN", scriptPath)
	t.Setenv("KAI_CACHE_DIR", t.TempDir())

	scratch, err := mux.NewScratchManager()
	if err != nil {
		t.Fatalf("NewScratchManager: %v", err)
	}

	out := filepath.Join(t.TempDir(), "fresh.stem.m4a")
	req := mux.MuxRequest{OutputPath: out, VTTPath: "lyrics.vtt"}

	if err := karaoke.Create(context.Background(), nil, scratch, req, testSong(), nil); err == nil {
		t.Fatal("expected Create to fail when the encoder fails")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("expected no output file after a failed mux, stat err = %v", err)
	}
}
