package workstation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/dwsmith1983/autosetup/internal/engine"
)

// FileCopy copies src into the folder dstDir, creating it if needed and
// preserving the file mode and modification time.
func (c *Catalog) FileCopy(src, dstDir string) engine.Action {
	return engine.Action{
		Name: "file-copy",
		Primary: engine.Op("copy", func(ctx context.Context) (string, error) {
			return copyFile(ctx, src, dstDir)
		}),
	}
}

func copyFile(ctx context.Context, src, dstDir string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", engine.Permanent(fmt.Errorf("source file not found: %s", src))
		}
		return "", err
	}
	if info.IsDir() {
		return "", engine.Permanent(fmt.Errorf("source is a directory: %s", src))
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("creating destination: %w", err)
	}
	dst := filepath.Join(dstDir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return "", err
	}
	n, copyErr := io.Copy(out, &ctxReader{ctx: ctx, r: in})
	if err := errors.Join(copyErr, out.Close()); err != nil {
		return "", fmt.Errorf("copying %s: %w", src, err)
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return "", err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", err
	}
	return fmt.Sprintf("copied %s -> %s (%s)", src, dst, humanize.Bytes(uint64(n))), nil
}

// ctxReader stops a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
