package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/testdb"
)

func TestResolveMigrationsDir_FromRepoRoot(t *testing.T) {
	_, repoRoot := testPaths(t)
	withWorkingDir(t, repoRoot)

	dir, err := resolveMigrationsDir(filepath.Join("infrastructure", "sqlite", "migrations"))
	if err != nil {
		t.Fatalf("resolve migrations dir from repo root: %v", err)
	}
	assertMigrationsDir(t, dir)
}

func TestResolveMigrationsDir_FromCmdDir(t *testing.T) {
	cmdDir, _ := testPaths(t)
	withWorkingDir(t, cmdDir)

	dir, err := resolveMigrationsDir(filepath.Join("infrastructure", "sqlite", "migrations"))
	if err != nil {
		t.Fatalf("resolve migrations dir from cmd/wasteboard: %v", err)
	}
	assertMigrationsDir(t, dir)
}

func TestResolveMigrationsDir_Missing(t *testing.T) {
	withWorkingDir(t, t.TempDir())
	if _, err := resolveMigrationsDir("nope"); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestSeedDemoIsRepeatable(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	f, err := parseFixtures(demoFixtures)
	if err != nil {
		t.Fatalf("parse fixtures: %v", err)
	}

	first, err := seedDemo(ctx, db, f)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if first.Units != len(f.Units) || first.Types != 5 || first.Users != len(f.Users) {
		t.Fatalf("unexpected first seed result: %+v", first)
	}

	second, err := seedDemo(ctx, db, f)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if second.Units != 0 || second.Types != 0 {
		t.Fatalf("expected nothing new on reseed, got %+v", second)
	}

	units, err := orgunit.List(ctx, db, orgunit.KindWastebankUnit)
	if err != nil {
		t.Fatalf("list units: %v", err)
	}
	if len(units) != 2 || units[0].ParentID == nil {
		t.Fatalf("expected two waste bank units under the central bank, got %+v", units)
	}
}

func testPaths(t *testing.T) (cmdDir string, repoRoot string) {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	cmdDir = filepath.Dir(file)
	repoRoot = filepath.Clean(filepath.Join(cmdDir, "..", ".."))
	return cmdDir, repoRoot
}

func withWorkingDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir to %s: %v", dir, err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
}

func assertMigrationsDir(t *testing.T, dir string) {
	t.Helper()
	info, err := os.Stat(filepath.Join(dir, "0001_init.sql"))
	if err != nil || info.IsDir() {
		t.Fatalf("expected 0001_init.sql in %s: %v", dir, err)
	}
}
