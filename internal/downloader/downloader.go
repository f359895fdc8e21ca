package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dguevar1/open-model-zoo/internal/descriptor"
)

var (
	ErrSizeMismatch     = errors.New("downloaded size does not match descriptor")
	ErrChecksumMismatch = errors.New("downloaded sha256 does not match descriptor")
)

// Downloader fetches model package files into an output tree and applies the
// descriptor's postprocessing steps. Downloads are sequential and never
// retried; any mismatch against the declared size or digest is fatal.
type Downloader struct {
	client *http.Client
	outDir string
}

func New(outDir string) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 30 * time.Minute},
		outDir: outDir,
	}
}

// Get downloads every file of one model package into <outDir>/<model>/ and
// then unpacks the declared archives. Files already present with a matching
// digest are skipped.
func (d *Downloader) Get(ctx context.Context, m *descriptor.Model) error {
	modelDir := filepath.Join(d.outDir, m.Name)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	for _, f := range m.Files {
		dest := filepath.Join(modelDir, f.Name)
		ok, err := matchesDigest(dest, f.Size, f.SHA256)
		if err != nil {
			return err
		}
		if ok {
			log.WithFields(log.Fields{"model": m.Name, "file": f.Name}).Info("already downloaded, skipping")
			continue
		}
		if err := d.fetch(ctx, f, dest); err != nil {
			return fmt.Errorf("download %s/%s: %w", m.Name, f.Name, err)
		}
	}

	for _, p := range m.Postprocessing {
		if p.Type != descriptor.PostprocessUnpack {
			continue
		}
		archive := filepath.Join(modelDir, p.File)
		log.WithFields(log.Fields{"model": m.Name, "archive": p.File, "format": p.Format}).Info("unpacking archive")
		if err := Unpack(p.Format, archive, modelDir); err != nil {
			return fmt.Errorf("unpack %s/%s: %w", m.Name, p.File, err)
		}
	}
	return nil
}

func (d *Downloader) fetch(ctx context.Context, f descriptor.File, dest string) error {
	log.WithFields(log.Fields{"source": f.Source, "size": f.Size}).Info("downloading")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Source, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if n != f.Size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, n, f.Size)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(sum, f.SHA256) {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, sum, f.SHA256)
	}
	return os.Rename(tmp.Name(), dest)
}

// matchesDigest reports whether path exists with the expected size and sha256.
func matchesDigest(path string, size int64, sum string) (bool, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.Size() != size {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return strings.EqualFold(hex.EncodeToString(h.Sum(nil)), sum), nil
}
