package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Overrides serves some URLs from local files and sends the rest to Next.
// A nil Next makes every unmapped URL ErrNotFound.
type Overrides struct {
	Files map[string]string
	Next  Fetcher
}

// Fetch reads the mapped file for url, or defers to Next.
func (o *Overrides) Fetch(ctx context.Context, u string) (string, error) {
	if p, ok := o.Files[u]; ok {
		return readPage(p)
	}
	if o.Next == nil {
		return "", fmt.Errorf("%s: %w", u, ErrNotFound)
	}
	return o.Next.Fetch(ctx, u)
}

// Exists reports a mapped file as present without reading it.
func (o *Overrides) Exists(ctx context.Context, u string) bool {
	if p, ok := o.Files[u]; ok {
		_, err := os.Stat(p)
		return err == nil
	}
	return o.Next != nil && o.Next.Exists(ctx, u)
}

// Dir serves pages from a directory laid out by MirrorPath. Pages missing
// from the directory go to Next when it is set.
type Dir struct {
	Root string
	Next Fetcher
}

// Fetch reads url's mirrored copy.
func (d *Dir) Fetch(ctx context.Context, u string) (string, error) {
	p, err := MirrorPath(d.Root, u)
	if err != nil {
		return "", err
	}
	body, err := readPage(p)
	if err == nil || d.Next == nil || !errors.Is(err, ErrNotFound) {
		return body, err
	}
	return d.Next.Fetch(ctx, u)
}

// Exists reports whether url is mirrored, or known to Next.
func (d *Dir) Exists(ctx context.Context, u string) bool {
	if p, err := MirrorPath(d.Root, u); err == nil {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return d.Next != nil && d.Next.Exists(ctx, u)
}

// MirrorPath maps a page URL to root/<host>/<path>[?query]. A path ending in
// "/" maps to its index.html.
func MirrorPath(root, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("mirror path: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("mirror path: %q is not an absolute URL", rawURL)
	}
	p := path.Clean("/" + u.Path)
	if p == "/" || strings.HasSuffix(u.Path, "/") {
		p = path.Join(p, "index.html")
	}
	if u.RawQuery != "" {
		p += "_" + strings.NewReplacer("&", "_", "=", "-", "/", "_").Replace(u.RawQuery)
	}
	return filepath.Join(root, u.Host, filepath.FromSlash(p)), nil
}

// Input picks where a single page comes from. LocalFile wins over URL, and
// URL over Stdin.
type Input struct {
	URL       string
	LocalFile string
	Stdin     io.Reader
}

// Load returns the page described by in.
func Load(ctx context.Context, f Fetcher, in Input) (string, error) {
	switch {
	case in.LocalFile != "":
		return readPage(in.LocalFile)
	case in.URL != "":
		if f == nil {
			return "", errors.New("no fetcher configured")
		}
		return f.Fetch(ctx, in.URL)
	case in.Stdin != nil:
		b, err := io.ReadAll(in.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	default:
		return "", errors.New("no input: set a URL, a local file or stdin")
	}
}

func readPage(p string) (string, error) {
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(b), nil
}

// WriteFileAtomic writes r to name through a temp file in the same
// directory, renaming it into place on success. It returns the bytes written.
func WriteFileAtomic(name string, r io.Reader) (int64, error) {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".sportsref-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if copyErr != nil {
		_ = os.Remove(tmpName)
		return n, copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return n, closeErr
	}
	if err := os.Rename(tmpName, name); err != nil {
		_ = os.Remove(tmpName)
		return n, err
	}
	return n, nil
}
