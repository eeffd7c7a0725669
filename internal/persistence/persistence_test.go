package persistence

import (
	"path/filepath"
	"testing"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

func TestAppendAndReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")

	l, err := Open(path, false)
	if err != nil {
		t.Fatal(err)
	}

	rr := job.ResultRecord{
		StartGeometry: []float64{1, 2, 3},
		FinalGeometry: []float64{1.1, 2.1, 3.1},
		FinalEnergy:   -0.5,
		Status:        job.StatusOK,
	}
	if err := l.Append("id-1", "0,60", "sig-a", rr); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	result, err := Replay(path, "sig-a")
	if err != nil {
		t.Fatal(err)
	}
	if result.Replayed != 1 || result.Mismatched != 0 {
		t.Fatalf("Replay = %+v, want 1 replayed, 0 mismatched", result)
	}
	got, ok := result.TaskCache["id-1"]
	if !ok {
		t.Fatal("expected id-1 in task cache")
	}
	if got.FinalEnergy != -0.5 || got.Status != job.StatusOK {
		t.Errorf("replayed record = %+v, want energy -0.5, status ok", got)
	}
}

func TestReplayMissingFileIsEmpty(t *testing.T) {
	result, err := Replay(filepath.Join(t.TempDir(), "does-not-exist.log"), "sig-a")
	if err != nil {
		t.Fatalf("Replay on missing file should not error: %v", err)
	}
	if len(result.TaskCache) != 0 {
		t.Errorf("expected empty task cache, got %v", result.TaskCache)
	}
}

func TestReplayDiscardsConfigMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	l, err := Open(path, false)
	if err != nil {
		t.Fatal(err)
	}
	rr := job.ResultRecord{FinalEnergy: 1.0, Status: job.StatusOK}
	l.Append("id-old", "0", "sig-old-config", rr)
	l.Close()

	result, err := Replay(path, "sig-new-config")
	if err != nil {
		t.Fatal(err)
	}
	if result.Mismatched != 1 {
		t.Errorf("Mismatched = %d, want 1", result.Mismatched)
	}
	if _, ok := result.TaskCache["id-old"]; ok {
		t.Error("a config-mismatched record must be discarded from the task cache")
	}
}

func TestAppendMultipleRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	l, err := Open(path, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		rr := job.ResultRecord{FinalEnergy: float64(i), Status: job.StatusOK}
		if err := l.Append(string(rune('a'+i)), "0", "sig", rr); err != nil {
			t.Fatal(err)
		}
	}
	l.Close()

	result, err := Replay(path, "sig")
	if err != nil {
		t.Fatal(err)
	}
	if result.Replayed != 5 {
		t.Fatalf("Replayed = %d, want 5", result.Replayed)
	}
}

func TestReplayPreservesFailedStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	l, err := Open(path, false)
	if err != nil {
		t.Fatal(err)
	}
	rr := job.ResultRecord{Status: job.StatusFailed}
	l.Append("id-failed", "60", "sig", rr)
	l.Close()

	result, err := Replay(path, "sig")
	if err != nil {
		t.Fatal(err)
	}
	if result.TaskCache["id-failed"].Status != job.StatusFailed {
		t.Error("expected replayed record to preserve failed status")
	}
}

func TestReopenAppendsRatherThanTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	l1, _ := Open(path, false)
	l1.Append("id-1", "0", "sig", job.ResultRecord{Status: job.StatusOK})
	l1.Close()

	l2, err := Open(path, false)
	if err != nil {
		t.Fatal(err)
	}
	l2.Append("id-2", "60", "sig", job.ResultRecord{Status: job.StatusOK})
	l2.Close()

	result, err := Replay(path, "sig")
	if err != nil {
		t.Fatal(err)
	}
	if result.Replayed != 2 {
		t.Fatalf("Replayed = %d, want 2 (reopen must append, not truncate)", result.Replayed)
	}
}
