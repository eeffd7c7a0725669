package geomfile

import (
	"strings"
	"testing"
)

func TestParseSingleFrame(t *testing.T) {
	input := "4\ncomment\nC 0.0 0.0 0.0\nC 1.0 0.0 0.0\nC 1.0 1.0 0.0\nC 0.0 1.0 0.0\n"
	frames, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if len(frames[0].Elements) != 4 {
		t.Errorf("got %d elements, want 4", len(frames[0].Elements))
	}
	if len(frames[0].Coords) != 12 {
		t.Errorf("got %d coords, want 12", len(frames[0].Coords))
	}
}

func TestParseMultipleFrames(t *testing.T) {
	frame := "2\nc\nH 0.0 0.0 0.0\nH 1.0 0.0 0.0\n"
	input := frame + frame + frame
	frames, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
}

func TestParseRejectsTruncatedFrame(t *testing.T) {
	input := "3\ncomment\nH 0.0 0.0 0.0\n"
	if _, err := Parse(strings.NewReader(input)); err == nil {
		t.Error("expected error for a frame with fewer atom lines than declared")
	}
}

func TestParseRejectsMalformedAtomLine(t *testing.T) {
	input := "1\ncomment\nH 0.0 0.0\n"
	if _, err := Parse(strings.NewReader(input)); err == nil {
		t.Error("expected error for an atom line with the wrong field count")
	}
}

func TestParseRejectsEmptyInput(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}
