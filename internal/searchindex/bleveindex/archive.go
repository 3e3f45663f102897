package bleveindex

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/locusmap/internal/searchindex"
)

const (
	formatVersion = 1
	manifestName  = "manifest.json"
	maxEntrySize  = 1 << 30
)

type manifest struct {
	Engine  string   `json:"engine"`
	Version int      `json:"version"`
	Ref     string   `json:"ref"`
	Fields  []string `json:"fields"`
}

// Marshal archives the index directory.
func (e *Engine) Marshal(idx searchindex.Index) ([]byte, error) {
	bi, ok := idx.(*Index)
	if !ok {
		return nil, fmt.Errorf("marshal %T: %w", idx, searchindex.ErrForeignIndex)
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	if err := writeArchive(zw, bi); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zstd: %w", err)
	}
	return buf.Bytes(), nil
}

func writeArchive(zw *zstd.Encoder, bi *Index) error {
	tw := tar.NewWriter(zw)
	if err := writeManifest(tw, bi.fields); err != nil {
		return err
	}
	root := filepath.Join(bi.dir, "index")
	if err := tw.AddFS(os.DirFS(root)); err != nil {
		return fmt.Errorf("archive index dir: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	return nil
}

func writeManifest(tw *tar.Writer, fields []string) error {
	data, err := json.Marshal(manifest{
		Engine:  EngineName,
		Version: formatVersion,
		Ref:     searchindex.RefField,
		Fields:  fields,
	})
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	hdr := &tar.Header{Name: manifestName, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Unmarshal extracts an archive into a fresh directory and opens it read-only.
func (e *Engine) Unmarshal(ctx context.Context, data []byte) (searchindex.Index, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w: %w", searchindex.ErrIncompatible, err)
	}
	defer zr.Close()
	tr := tar.NewReader(zr)

	m, err := readManifest(tr)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(m.Fields, e.fields) {
		return nil, fmt.Errorf("bleve archive fields %v, engine fields %v: %w",
			m.Fields, e.fields, searchindex.ErrIncompatible)
	}

	dir, err := os.MkdirTemp(e.tmpDir, "locusmap-bleve-*")
	if err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	path := filepath.Join(dir, "index")
	if err := extract(ctx, tr, path); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return open(dir, path, m.Fields)
}

func readManifest(tr *tar.Reader) (manifest, error) {
	var m manifest
	hdr, err := tr.Next()
	if err != nil {
		return m, fmt.Errorf("read archive: %w: %w", searchindex.ErrIncompatible, err)
	}
	if hdr.Name != manifestName {
		return m, fmt.Errorf("archive starts with %q: %w", hdr.Name, searchindex.ErrIncompatible)
	}
	if err := json.NewDecoder(io.LimitReader(tr, 1<<20)).Decode(&m); err != nil {
		return m, fmt.Errorf("decode manifest: %w: %w", searchindex.ErrIncompatible, err)
	}
	if m.Engine != EngineName || m.Version != formatVersion {
		return m, fmt.Errorf("bleve archive: engine %q version %d: %w",
			m.Engine, m.Version, searchindex.ErrIncompatible)
	}
	return m, nil
}

func extract(ctx context.Context, tr *tar.Reader, root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", root, err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // context error passthrough
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w: %w", searchindex.ErrIncompatible, err)
		}
		if !filepath.IsLocal(hdr.Name) {
			return fmt.Errorf("archive entry %q escapes index dir: %w", hdr.Name, searchindex.ErrIncompatible)
		}
		target := filepath.Join(root, hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
		case tar.TypeReg:
			if hdr.Size > maxEntrySize {
				return fmt.Errorf("archive entry %q is %d bytes: %w", hdr.Name, hdr.Size, searchindex.ErrIncompatible)
			}
			if err := writeEntry(tr, target, hdr.Size); err != nil {
				return err
			}
		default:
			return fmt.Errorf("archive entry %q has type %d: %w", hdr.Name, hdr.Typeflag, searchindex.ErrIncompatible)
		}
	}
}

func writeEntry(r io.Reader, target string, size int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(0o644))
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.CopyN(f, r, size); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}
