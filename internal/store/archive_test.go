package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/signalsfoundry/router-placement/placement"
)

func openArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func sampleFront() placement.Front {
	return placement.Front{
		{Active: []bool{false, false, false}, Objectives: placement.Objectives{Uncovered: 9, Routers: 0}},
		{Active: []bool{false, true, false}, Objectives: placement.Objectives{Uncovered: 4, Routers: 1}},
		{Active: []bool{true, true, false}, Objectives: placement.Objectives{Uncovered: 0, Routers: 2}},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	a := openArchive(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		ID:          "run-1",
		CreatedAt:   created,
		Building:    "Research Lab Complex",
		Candidates:  3,
		Sensors:     9,
		Seed:        1<<63 + 5,
		Generations: 50,
		Evaluations: 2500,
		Front:       sampleFront(),
	}
	if err := a.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := a.LoadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	got.CreatedAt = run.CreatedAt
	if !reflect.DeepEqual(got, run) {
		t.Fatalf("LoadRun() = %+v, want %+v", got, run)
	}
}

func TestSaveRunReplaces(t *testing.T) {
	a := openArchive(t)
	ctx := context.Background()
	run := Run{ID: "run-1", Front: sampleFront()}
	if err := a.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	run.Front = run.Front[:1]
	if err := a.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun again: %v", err)
	}
	front, err := a.LoadFront(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadFront: %v", err)
	}
	if len(front) != 1 {
		t.Fatalf("front has %d solutions, want 1 after replace", len(front))
	}
}

func TestLoadMissingRun(t *testing.T) {
	a := openArchive(t)
	ctx := context.Background()
	if _, err := a.LoadFront(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("LoadFront(missing) error = %v, want ErrRunNotFound", err)
	}
	if _, err := a.LoadRun(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("LoadRun(missing) error = %v, want ErrRunNotFound", err)
	}
	if err := a.SaveRun(ctx, Run{}); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	a := openArchive(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := a.SaveRun(ctx, Run{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}
	ids, err := a.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"c", "b", "a"}) {
		t.Fatalf("ListRuns() = %v, want [c b a]", ids)
	}

	// Sub-second spacing inside one second, including a fraction with
	// trailing zeros.
	second := base.Add(24 * time.Hour)
	for _, r := range []struct {
		id     string
		offset time.Duration
	}{
		{"d", 120 * time.Millisecond},
		{"e", 125 * time.Millisecond},
		{"f", 125*time.Millisecond + time.Microsecond},
	} {
		if err := a.SaveRun(ctx, Run{ID: r.id, CreatedAt: second.Add(r.offset)}); err != nil {
			t.Fatalf("SaveRun(%s): %v", r.id, err)
		}
	}
	ids, err = a.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if want := []string{"f", "e", "d", "c", "b", "a"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ListRuns() = %v, want %v", ids, want)
	}
	got, err := a.LoadRun(ctx, "e")
	if err != nil {
		t.Fatalf("LoadRun(e): %v", err)
	}
	if want := second.Add(125 * time.Millisecond); !got.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, want)
	}

	front, err := a.LoadFront(ctx, "a")
	if err != nil || len(front) != 0 {
		t.Fatalf("LoadFront(empty) = %v, %v", front, err)
	}
}
