package extracthtml

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// SourceFileKey is added to every record written by StreamFromDir.
const SourceFileKey = "source_file"

// jsonArray writes values as one JSON array, one encoder call per element.
type jsonArray struct {
	w   io.Writer
	enc *json.Encoder
	n   int
}

func (a *jsonArray) open() error {
	_, err := io.WriteString(a.w, "[")
	return err
}

func (a *jsonArray) add(v any) error {
	if a.n > 0 {
		if _, err := io.WriteString(a.w, ","); err != nil {
			return err
		}
	}
	a.n++
	return a.enc.Encode(v)
}

func (a *jsonArray) close() error {
	_, err := io.WriteString(a.w, "]")
	return err
}

// StreamFromDir extracts every saved page directly under dir, in file name
// order, and writes all records to w as a single JSON array through enc.
// Each record carries the page's file name under SourceFileKey. Pages that
// cannot be read or yield no record are skipped.
func StreamFromDir(w io.Writer, dir string, sf *SchemeFile, s *Scheme, enc *json.Encoder) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read pages dir: %w", err)
	}
	var pages []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			pages = append(pages, e.Name())
		}
	}
	slices.Sort(pages)

	out := &jsonArray{w: w, enc: enc}
	if err := out.open(); err != nil {
		return fmt.Errorf("write array: %w", err)
	}
	for _, name := range pages {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		recs, err := ExtractPage(string(raw), sf, s)
		if err != nil {
			continue
		}
		for _, r := range recs {
			obj := r.Map()
			obj[SourceFileKey] = name
			if err := out.add(obj); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
		}
	}
	if err := out.close(); err != nil {
		return fmt.Errorf("write array: %w", err)
	}
	return nil
}
