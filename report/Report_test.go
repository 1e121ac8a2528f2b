package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sfneuman.com/stampede/checkpoint"
)

func seededStore(t *testing.T) *checkpoint.Store {
	t.Helper()

	store, err := checkpoint.New(filepath.Join(t.TempDir(), "stampede.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	for i := int64(0); i < 5; i++ {
		if err := store.RecordMetric("run-1", i, i*100, "episode_return",
			float64(i)); err != nil {
			t.Fatal(err)
		}
		if err := store.RecordMetric("run-1", i, i*100, "loss",
			1.0/float64(i+1)); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestWriteRendersReport(t *testing.T) {
	store := seededStore(t)
	dir := t.TempDir()

	path, err := Write(store, "run-1", dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "report.html") {
		t.Errorf("report written to %v", path)
	}

	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"episode_return", "loss"} {
		if !strings.Contains(string(html), name) {
			t.Errorf("report does not mention metric %q", name)
		}
	}
}

func TestWriteDefaultsToNewestRun(t *testing.T) {
	store := seededStore(t)

	if _, err := Write(store, "", t.TempDir()); err != nil {
		t.Errorf("report of the newest run failed: %v", err)
	}
}

func TestWriteErrorsWithoutMetrics(t *testing.T) {
	store, err := checkpoint.New(filepath.Join(t.TempDir(), "stampede.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := Write(store, "", t.TempDir()); err == nil {
		t.Error("report of an empty database returned no error")
	}
	if _, err := Write(store, "missing-run", t.TempDir()); err == nil {
		t.Error("report of an unknown run returned no error")
	}
}
