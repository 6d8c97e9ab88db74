package tools

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"devkit/internal/catalog"
	"devkit/internal/runner"
)

// downloadInstall fetches the descriptor's artefact, verifies it and unpacks
// it into the install directory. It returns the install directory.
func (e *Engine) downloadInstall(ctx context.Context, desc catalog.Descriptor, opts Options) (string, error) {
	dl := desc.Download
	if dl == nil {
		return "", errors.New("descriptor has no download section")
	}
	vars := e.vars(desc, opts)
	downloadURL := runner.Expand(dl.URL, vars)
	installDir := vars["install_dir"]
	if installDir == "" {
		return "", errors.New("download install_dir is empty")
	}

	downloads := e.downloadsDir()
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return "", fmt.Errorf("prepare downloads dir: %w", err)
	}
	archivePath, err := resolveArchivePath(downloads, downloadURL)
	if err != nil {
		return "", err
	}

	e.logger().Info("downloading", zap.String("tool", desc.Key()), zap.String("url", downloadURL))
	timeout := e.commandTimeout()
	dlCtx, cancel := context.WithTimeout(ctx, timeout)
	err = ensureDownload(dlCtx, e.httpClient(), archivePath, downloadURL, dl.Checksum, opts.Force)
	cancel()
	if err != nil {
		if errors.Is(dlCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("download %s: %w after %s", downloadURL, runner.ErrTimeout, timeout)
		}
		return "", err
	}

	parent := filepath.Dir(installDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("prepare install parent: %w", err)
	}
	staging, err := os.MkdirTemp(parent, desc.Key()+"-staging-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	switch strings.ToLower(strings.TrimSpace(dl.Archive)) {
	case "zip":
		err = extractZip(archivePath, staging)
	case "tar.gz":
		err = extractTarGz(archivePath, staging)
	default:
		dest := filepath.Join(staging, filepath.Base(archivePath))
		err = copyFile(archivePath, dest)
		if err == nil && runtime.GOOS != "windows" {
			err = os.Chmod(dest, 0o755)
		}
	}
	if err != nil {
		return "", err
	}

	if err := os.RemoveAll(installDir); err != nil {
		return "", fmt.Errorf("replace install dir: %w", err)
	}
	if err := os.Rename(staging, installDir); err != nil {
		return "", fmt.Errorf("commit install dir: %w", err)
	}
	committed = true
	return installDir, nil
}

func (e *Engine) downloadsDir() string {
	if e.Policy.DownloadsDir != "" {
		return e.Policy.DownloadsDir
	}
	if e.Policy.DataDir == "" {
		return filepath.Join(os.TempDir(), "devkit-downloads")
	}
	return filepath.Join(e.Policy.DataDir, "downloads")
}

func ensureDownload(ctx context.Context, client *http.Client, dest, downloadURL, checksum string, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			if checksum == "" {
				return nil
			}
			if match, err := verifyChecksum(dest, checksum); err == nil && match {
				return nil
			}
		}
	}
	return downloadArtifact(ctx, client, dest, downloadURL, checksum)
}

func downloadArtifact(ctx context.Context, client *http.Client, dest, downloadURL, checksum string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare download destination: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "devkit/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: unexpected status %s", downloadURL, resp.Status)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if checksum != "" {
		match, err := verifyChecksum(tmpPath, checksum)
		if err != nil {
			return err
		}
		if !match {
			return fmt.Errorf("checksum mismatch for %s", downloadURL)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

func verifyChecksum(path, expected string) (bool, error) {
	sum, err := computeChecksum(path)
	if err != nil {
		return false, err
	}
	expected = strings.TrimPrefix(strings.TrimSpace(expected), "sha256:")
	return strings.EqualFold(sum, expected), nil
}

func computeChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func resolveArchivePath(downloadsDir, downloadURL string) (string, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "" || base == "/" {
		return "", fmt.Errorf("infer archive name from url: %s", downloadURL)
	}
	return filepath.Join(downloadsDir, base), nil
}

// safeJoin resolves an archive entry under dest, rejecting entries that
// would escape it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("prepare file %s: %w", target, err)
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode()|0o600)
		if err != nil {
			rc.Close()
			return fmt.Errorf("create file %s: %w", target, err)
		}
		if _, err := io.Copy(out, rc); err != nil {
			rc.Close()
			out.Close()
			return fmt.Errorf("copy file %s: %w", target, err)
		}
		rc.Close()
		if err := out.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", target, err)
		}
	}
	return nil
}

func extractTarGz(archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("prepare file %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)|0o600)
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", target, err)
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	dest, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}
