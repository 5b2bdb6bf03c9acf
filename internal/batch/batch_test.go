package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/tomkyle/negatives-lineartiff/internal/config"
)

// ratingReader serves only the Rating tag, keyed by basename.
type ratingReader struct {
	ratings map[string]int
}

func (r *ratingReader) Int(_ context.Context, path, tag string) (int, bool, error) {
	if tag != "Rating" {
		return 0, false, nil
	}
	v, ok := r.ratings[filepath.Base(path)]
	return v, ok, nil
}

func (r *ratingReader) Float(_ context.Context, _, _ string) (float64, bool, error) {
	return 0, false, nil
}

func (r *ratingReader) Bool(_ context.Context, _, _ string) (bool, bool, error) {
	return false, false, nil
}

func discard(string, ...any) {}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("raw"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverRaw(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.nef", "b.CR2", "c.dng", "notes.txt", "d.jpg")
	// RAW files in subdirectories must be ignored: enumeration is non-recursive.
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, sub, "nested.nef")

	files, err := DiscoverRaw(dir)
	if err != nil {
		t.Fatalf("DiscoverRaw: %v", err)
	}
	got := make([]string, 0, len(files))
	for _, f := range files {
		got = append(got, filepath.Base(f))
	}
	sort.Strings(got)
	want := []string{"a.nef", "b.CR2", "c.dng"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("DiscoverRaw = %v, want %v", got, want)
	}
}

func TestDiscoverRawMissingRoot(t *testing.T) {
	if _, err := DiscoverRaw(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected an error for a missing search root")
	}
}

func TestRunFiltersByRating(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "one.nef", "two.nef", "three.cr2", "four.arw", "five.dng")
	reader := &ratingReader{ratings: map[string]int{
		"one.nef":   3,
		"two.nef":   2,
		"three.cr2": 2,
		"four.arw":  1,
		"five.dng":  0,
	}}

	var mu sync.Mutex
	ran := []string{}
	runner := func(_ context.Context, src string) error {
		mu.Lock()
		ran = append(ran, filepath.Base(src))
		mu.Unlock()
		return nil
	}

	d := New(config.Options{RatingThreshold: 2}, reader, runner)
	d.SetLogf(discard)
	sum, err := d.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Discovered != 5 {
		t.Errorf("Discovered = %d, want 5", sum.Discovered)
	}
	if sum.Eligible != 3 || sum.Processed != 3 {
		t.Errorf("Eligible/Processed = %d/%d, want 3/3", sum.Eligible, sum.Processed)
	}
	sort.Strings(ran)
	if strings.Join(ran, ",") != "one.nef,three.cr2,two.nef" {
		t.Errorf("ran = %v", ran)
	}
}

// One failing image must not keep the others from being processed and
// counted.
func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "good1.nef", "bad.nef", "good2.nef")
	reader := &ratingReader{ratings: map[string]int{}}

	runner := func(_ context.Context, src string) error {
		if filepath.Base(src) == "bad.nef" {
			return errors.New("decoder crashed")
		}
		return nil
	}

	d := New(config.Options{RatingThreshold: 0}, reader, runner)
	d.SetLogf(discard)
	sum, err := d.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Processed != 3 {
		t.Errorf("Processed = %d, want 3 (failures still count as processed)", sum.Processed)
	}
	if sum.Failed != 1 {
		t.Errorf("Failed = %d, want 1", sum.Failed)
	}
}

func TestRunAbsentRatingsWithRejectSentinel(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "unrated.nef", "rejected.nef")
	reader := &ratingReader{ratings: map[string]int{"rejected.nef": -1}}

	count := 0
	var mu sync.Mutex
	runner := func(_ context.Context, _ string) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}

	// -1 includes rejected images: everything runs.
	d := New(config.Options{RatingThreshold: config.RatingIncludeRejected}, reader, runner)
	d.SetLogf(discard)
	sum, err := d.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 2 || sum.Processed != 2 {
		t.Errorf("count/Processed = %d/%d, want 2/2", count, sum.Processed)
	}

	// 0 excludes only rejected.
	count = 0
	d = New(config.Options{RatingThreshold: 0}, reader, runner)
	d.SetLogf(discard)
	sum, err = d.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 1 || sum.Processed != 1 {
		t.Errorf("count/Processed = %d/%d, want 1/1", count, sum.Processed)
	}
}
