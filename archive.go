package artifactcache

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// DirectoryTTL is how long packed directory trees stay cached.
const DirectoryTTL = 24 * time.Hour

const archiveType = "directory_archive"

// CacheDirectory packs dir into a single tar.gz artifact and stores it under
// key. The directory's base name becomes the archive's top-level entry. The
// temporary archive file is removed regardless of outcome.
func CacheDirectory(ctx context.Context, m Manager, dir, key string) bool {
	tmp, err := os.CreateTemp("", "artifactcache-*.tar.gz")
	if err != nil {
		return false
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeArchive(tmp, dir); err != nil {
		tmp.Close()
		return false
	}
	if err := tmp.Close(); err != nil {
		return false
	}

	data, err := os.ReadFile(tmpName)
	if err != nil {
		return false
	}
	return m.Set(ctx, key, data, DirectoryTTL, map[string]any{
		"type":          archiveType,
		"original_path": dir,
	})
}

// RestoreDirectory unpacks the artifact stored under key. Returns false on a
// cache miss. The archive is extracted into the parent of target: the
// archive's internal top-level entry determines the final directory name.
// That parent-relative extraction mirrors the long-standing behavior callers
// depend on, even though target itself is created first.
func RestoreDirectory(ctx context.Context, m Manager, key, target string) bool {
	e, ok := m.Get(ctx, key)
	if !ok {
		return false
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return false
	}

	tmp, err := os.CreateTemp("", "artifactcache-*.tar.gz")
	if err != nil {
		return false
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(e.Payload); err != nil {
		tmp.Close()
		return false
	}
	if err := tmp.Close(); err != nil {
		return false
	}

	return extractArchive(tmpName, filepath.Dir(filepath.Clean(target))) == nil
}

// writeArchive streams dir into w as gzip-compressed tar, with
// filepath.Base(dir) as the top-level entry name. Regular files and
// directories only; other entry types are skipped.
func writeArchive(w io.Writer, dir string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	base := filepath.Base(filepath.Clean(dir))
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := base
		if rel != "." {
			name = base + "/" + filepath.ToSlash(rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = name + "/"
			return tw.WriteHeader(hdr)
		case info.Mode().IsRegular():
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = name
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, f)
			f.Close()
			return err
		default:
			return nil // sockets, devices, symlinks: not cacheable
		}
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// extractArchive unpacks a tar.gz file into dest, rejecting entries that
// would escape it.
func extractArchive(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	destRoot := filepath.Clean(dest)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		p := filepath.Join(destRoot, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(p, destRoot+string(os.PathSeparator)) {
			return fs.ErrInvalid // path traversal
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(p, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}
