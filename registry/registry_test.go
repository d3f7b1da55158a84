package registry

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/hoist/artifact"
	"github.com/chazu/hoist/lift"
)

func openTemp(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "hoist.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestClaimRoot(t *testing.T) {
	r := openTemp(t)

	if err := r.ClaimRoot("App"); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	err := r.ClaimRoot("App")
	var dup *lift.DuplicateRootError
	if !errors.As(err, &dup) {
		t.Fatalf("second claim err = %v, want DuplicateRootError", err)
	}
	if dup.Root != "App" {
		t.Errorf("error root = %q", dup.Root)
	}

	if err := r.ClaimRoot("Other"); err != nil {
		t.Errorf("distinct root rejected: %v", err)
	}
}

func TestReleaseRoot(t *testing.T) {
	r := openTemp(t)

	if err := r.ReleaseRoot("App"); !errors.Is(err, ErrRootNotClaimed) {
		t.Errorf("release of unclaimed root: err = %v", err)
	}

	if err := r.ClaimRoot("App"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := r.ReleaseRoot("App"); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Released roots are claimable again.
	if err := r.ClaimRoot("App"); err != nil {
		t.Errorf("reclaim after release: %v", err)
	}
}

func TestClaimsPersistAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hoist.db")

	r1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r1.ClaimRoot("App"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	firstRun := r1.RunID()
	r1.Close()

	r2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r2.Close()

	if r2.RunID() == firstRun {
		t.Error("run id reused across opens")
	}

	var dup *lift.DuplicateRootError
	if err := r2.ClaimRoot("App"); !errors.As(err, &dup) {
		t.Errorf("claim from earlier run not enforced: err = %v", err)
	}

	roots, err := r2.Roots()
	if err != nil {
		t.Fatalf("Roots: %v", err)
	}
	if len(roots) != 1 || roots[0] != "App" {
		t.Errorf("roots = %v, want [App]", roots)
	}
}

func TestRecordAndLookupArtifact(t *testing.T) {
	r := openTemp(t)

	res, err := lift.Transform(lift.Scope{
		Root: "Evt",
		Body: `h = _cl(void, (int code), (int fd), { send(_env->fd, code); });`,
	}, lift.Options{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	a := artifact.FromResult(res)

	if err := r.RecordArtifact(a); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}

	got, err := r.LookupArtifact("Evt")
	if err != nil {
		t.Fatalf("LookupArtifact: %v", err)
	}
	if got.Hash != a.Hash {
		t.Errorf("hash = %x, want %x", got.Hash, a.Hash)
	}
	if len(got.Definitions) != 1 || got.Definitions[0].Name != "Evt_fn1" {
		t.Errorf("definitions = %v", got.Definitions)
	}

	if _, err := r.LookupArtifact("Missing"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("missing artifact err = %v", err)
	}
}

func TestRecordArtifactReplaces(t *testing.T) {
	r := openTemp(t)

	build := func(body string) *artifact.Artifact {
		res, err := lift.Transform(lift.Scope{Root: "Evt", Body: body}, lift.Options{})
		if err != nil {
			t.Fatalf("Transform: %v", err)
		}
		return artifact.FromResult(res)
	}

	first := build(`h = _fn(void, (void), { a(); });`)
	second := build(`h = _fn(void, (void), { b(); });`)
	if err := r.RecordArtifact(first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := r.RecordArtifact(second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	got, err := r.LookupArtifact("Evt")
	if err != nil {
		t.Fatalf("LookupArtifact: %v", err)
	}
	if got.Hash != second.Hash {
		t.Error("replacement did not take effect")
	}
}
