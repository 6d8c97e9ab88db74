package tools

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"devkit/internal/catalog"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func serveArtifact(t *testing.T, name string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+name {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// pathLookup resolves executables against the engine's PATH store so that an
// unpacked artefact becomes discoverable once its directory is added.
func pathLookup(e *Engine) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, dir := range e.Paths.List() {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("%s not found", name)
	}
}

func TestDownloadInstallUnpacksAndAddsToPath(t *testing.T) {
	archive := zipBytes(t, map[string]string{"ninja": "#!/bin/sh\n"})
	srv := serveArtifact(t, "ninja-linux.zip", archive)

	sys := newFakeSystem()
	e := newTestEngine(t, sys)
	e.LookPath = pathLookup(e)
	e.HTTP = srv.Client()
	installDir := filepath.Join(e.Policy.DataDir, "tools", "ninja")
	sys.on(filepath.Join(installDir, "ninja")+" --version", response{stdout: "1.12.1\n"})

	desc := catalog.Descriptor{
		Name:        "ninja",
		Executables: []string{"ninja"},
		Method:      catalog.MethodDownload,
		Download: &catalog.Download{
			URL:        srv.URL + "/ninja-linux.zip",
			Checksum:   "sha256:" + sha256Hex(archive),
			Archive:    "zip",
			InstallDir: "{data}/tools/ninja",
		},
	}

	res := e.Install(context.Background(), desc, Options{})
	if !res.Succeeded() {
		t.Fatalf("expected success, got %#v (notes %v)", res.Outcome, res.Notes)
	}
	if res.Status.Version != "1.12.1" {
		t.Fatalf("version = %q", res.Status.Version)
	}
	if !onPath(e.Paths, installDir) {
		t.Fatalf("expected %s on PATH, got %v", installDir, e.Paths.List())
	}
	if _, err := os.Stat(filepath.Join(e.Policy.DataDir, "downloads", "ninja-linux.zip")); err != nil {
		t.Fatalf("expected cached archive: %v", err)
	}

	removed := e.Uninstall(context.Background(), desc, Options{})
	if !removed.Succeeded() {
		t.Fatalf("uninstall: %#v", removed.Outcome)
	}
	if _, err := os.Stat(installDir); !os.IsNotExist(err) {
		t.Fatalf("install dir should be removed, stat err = %v", err)
	}
	if onPath(e.Paths, installDir) {
		t.Fatal("install dir should be stripped from PATH")
	}
}

func TestDownloadInstallChecksumMismatch(t *testing.T) {
	archive := zipBytes(t, map[string]string{"ninja": "binary"})
	srv := serveArtifact(t, "ninja.zip", archive)

	e := newTestEngine(t, newFakeSystem())
	e.LookPath = pathLookup(e)
	e.HTTP = srv.Client()
	desc := catalog.Descriptor{
		Name:        "ninja",
		Executables: []string{"ninja"},
		Method:      catalog.MethodDownload,
		Download: &catalog.Download{
			URL:        srv.URL + "/ninja.zip",
			Checksum:   strings.Repeat("0", 64),
			Archive:    "zip",
			InstallDir: "{data}/tools/ninja",
		},
	}

	res := e.Install(context.Background(), desc, Options{})
	if res.Kind() != KindCommandFailed {
		t.Fatalf("kind = %q", res.Kind())
	}
	if !strings.Contains(res.Message(), "checksum mismatch") {
		t.Fatalf("message = %q", res.Message())
	}
	if _, err := os.Stat(filepath.Join(e.Policy.DataDir, "tools", "ninja")); !os.IsNotExist(err) {
		t.Fatalf("nothing should be installed, stat err = %v", err)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := serveArtifact(t, "present.zip", nil)
	e := newTestEngine(t, newFakeSystem())
	e.HTTP = srv.Client()
	desc := catalog.Descriptor{
		Name:        "ghost",
		Executables: []string{"ghost"},
		Method:      catalog.MethodDownload,
		Download:    &catalog.Download{URL: srv.URL + "/missing.zip", Archive: "zip", InstallDir: "{data}/ghost"},
	}
	res := e.Install(context.Background(), desc, Options{})
	if res.Kind() != KindCommandFailed || !strings.Contains(res.Message(), "404") {
		t.Fatalf("unexpected result %#v", res.Outcome)
	}
}

func TestExtractTarGz(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("hello")
	if err := tw.WriteHeader(&tar.Header{Name: "bin/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
		t.Fatal(err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: "bin/tool", Typeflag: tar.TypeReg, Mode: 0o755, Size: int64(len(content))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	archive := filepath.Join(dir, "tool.tar.gz")
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	if err := extractTarGz(archive, dest); err != nil {
		t.Fatalf("extractTarGz: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "bin", "tool"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("extracted %q, %v", got, err)
	}
}

func TestSafeJoinRejectsTraversal(t *testing.T) {
	dest := t.TempDir()
	if _, err := safeJoin(dest, "../evil"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := safeJoin(dest, "nested/ok.txt"); err != nil {
		t.Fatalf("nested entry rejected: %v", err)
	}
}

func TestDownloadInstallTimesOutOnStalledServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	sys := newFakeSystem()
	e := newTestEngine(t, sys)
	e.HTTP = srv.Client()
	e.Policy.CommandTimeout = 200 * time.Millisecond

	desc := catalog.Descriptor{
		Name:        "ninja",
		Executables: []string{"ninja"},
		Method:      catalog.MethodDownload,
		Download: &catalog.Download{
			URL:        srv.URL + "/ninja-linux.zip",
			Archive:    "zip",
			InstallDir: "{data}/tools/ninja",
		},
	}

	started := time.Now()
	res := e.Install(context.Background(), desc, Options{})
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("install took %s with a 200ms command timeout", elapsed)
	}
	if res.Kind() != KindCommandFailed {
		t.Fatalf("kind = %q, want %q (%s)", res.Kind(), KindCommandFailed, res.Message())
	}
	if !strings.Contains(res.Message(), "timed out") {
		t.Fatalf("message should report the timeout: %q", res.Message())
	}
}

func TestDownloadsDirFollowsPolicy(t *testing.T) {
	e := &Engine{Policy: Policy{DataDir: "/data"}}
	if got, want := e.downloadsDir(), filepath.Join("/data", "downloads"); got != want {
		t.Fatalf("downloadsDir = %q, want %q", got, want)
	}
	e.Policy.DownloadsDir = "/cache/devkit"
	if got := e.downloadsDir(); got != "/cache/devkit" {
		t.Fatalf("downloadsDir = %q, want /cache/devkit", got)
	}
}
