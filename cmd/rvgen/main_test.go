package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/rvgen/image"
	"github.com/chazu/rvgen/manifest"
)

func writeManifest(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunEntriesUsesCache(t *testing.T) {
	dir := writeManifest(t, "[target]\nfeatures = [\"d\", \"zba\"]\n")
	opts := options{dir: dir, entries: true}

	var first strings.Builder
	if err := run(opts, &first); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(first.String(), "native") || !strings.Contains(first.String(), "java_lang_math_sqrt") {
		t.Errorf("entry table:\n%s", first.String())
	}
	if _, err := os.Stat(filepath.Join(dir, ".rvgen", "images.db")); err != nil {
		t.Fatalf("cache not created: %v", err)
	}

	// The second run loads the same image, ID included.
	var second strings.Builder
	if err := run(opts, &second); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Errorf("cached run differs:\n%s\nvs\n%s", first.String(), second.String())
	}

	var listing strings.Builder
	if err := run(options{dir: dir, cacheList: true}, &listing); err != nil {
		t.Fatal(err)
	}
	if strings.Count(listing.String(), "\n") != 1 {
		t.Errorf("cache listing:\n%s", listing.String())
	}
}

func TestRunWritesImage(t *testing.T) {
	dir := writeManifest(t, "[cache]\ndisabled = true\n")
	out := filepath.Join(dir, "interp.img")
	var sb strings.Builder
	if err := run(options{dir: dir, output: out, list: true}, &sb); err != nil {
		t.Fatal(err)
	}
	img, err := image.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if img.Base != manifest.Default().Target.Base {
		t.Errorf("base = %#x", img.Base)
	}
	if !strings.Contains(sb.String(), "remove_activation") {
		t.Error("listing missing")
	}

	if err := run(options{dir: dir, cacheList: true}, &sb); err == nil {
		t.Error("listing a disabled cache succeeded")
	}
}

func TestRunSignatureHandler(t *testing.T) {
	dir := writeManifest(t, "[cache]\ndisabled = true\n")
	var sb strings.Builder
	if err := run(options{dir: dir, signature: "(IJ)I", static: true}, &sb); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "signature handler") {
		t.Errorf("output:\n%s", sb.String())
	}

	if err := run(options{dir: dir, signature: "(Q)V"}, &sb); err == nil {
		t.Error("bad signature accepted")
	}
}

func TestRunRejectsBadManifest(t *testing.T) {
	dir := writeManifest(t, "[interpreter]\nuse-compiler = true\n[runtime]\nmonitorexit = 0\n")
	var sb strings.Builder
	if err := run(options{dir: dir, noCache: true}, &sb); err == nil {
		t.Error("invalid manifest accepted")
	}
}
