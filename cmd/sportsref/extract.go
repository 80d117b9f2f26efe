package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sportsref/internal/extracthtml"
	"sportsref/internal/fetch"
)

// pageFlags are the shared --url/--file inputs; stdin is used when both
// are empty.
type pageFlags struct {
	url  string
	file string
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.url, "url", "", "fetch the page from this URL")
	cmd.Flags().StringVar(&p.file, "file", "", "read the page from this file")
}

func (p *pageFlags) load(a *app, cmd *cobra.Command) (string, error) {
	return fetch.Load(cmd.Context(), a.fetcher, fetch.Input{
		URL:       p.url,
		LocalFile: p.file,
		Stdin:     cmd.InOrStdin(),
	})
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		page       pageFlags
		schemePath string
		dir        string
		links      string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Apply a scheme file to a page and print the records.",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schemePath == "" {
				return usagef("missing --scheme")
			}
			sf, s, err := extracthtml.LoadSchemeFile(schemePath)
			if err != nil {
				return usagef("load scheme: %w", err)
			}
			out := cmd.OutOrStdout()

			if dir != "" {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				if err := extracthtml.StreamFromDir(out, dir, sf, s, enc); err != nil {
					return fmt.Errorf("dir extract: %w", err)
				}
				return nil
			}

			html, err := page.load(a, cmd)
			if err != nil {
				return fmt.Errorf("load html: %w", err)
			}
			if links != "" {
				if err := extracthtml.PrintLinks(out, page.url, html, sf, s, links); err != nil {
					return fmt.Errorf("links: %w", err)
				}
				return nil
			}

			recs, err := extracthtml.ExtractPage(html, sf, s)
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			rows := make([]map[string]any, len(recs))
			for i, r := range recs {
				rows[i] = r.Map()
			}
			var cols []string
			for _, f := range s.Fields() {
				cols = append(cols, f.ColumnName())
			}
			return a.print(cmd, cols, rows)
		},
	}
	page.register(cmd)
	cmd.Flags().StringVar(&schemePath, "scheme", "", "scheme JSON file (required)")
	cmd.Flags().StringVar(&dir, "dir", "", "extract every saved page in this directory as one JSON array")
	cmd.Flags().StringVar(&links, "links", "", "print the resolved link targets of this field instead of records")
	return cmd
}

func newSelectorCmd(a *app) *cobra.Command {
	var (
		page   pageFlags
		text   bool
		unwrap bool
	)
	cmd := &cobra.Command{
		Use:   "selector <css>",
		Short: "Print what a selector matches on a page, for writing schemes.",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := extracthtml.ValidateSelector(argv[0]); err != nil {
				return usageError{err}
			}
			html, err := page.load(a, cmd)
			if err != nil {
				return fmt.Errorf("load html: %w", err)
			}
			return extracthtml.DebugPrintSelector(cmd.OutOrStdout(), html, argv[0], text, unwrap)
		},
	}
	page.register(cmd)
	cmd.Flags().BoolVar(&text, "text", false, "print trimmed text instead of outer HTML")
	cmd.Flags().BoolVar(&unwrap, "unwrap", false, "expose comment-hidden tables before matching")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		urlFile  string
		out      string
		workers  int
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Mirror pages to a directory usable as --pages-dir, logging JSONL per attempt.",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return usagef("missing --out")
			}
			var r io.Reader = cmd.InOrStdin()
			if urlFile != "" {
				f, err := os.Open(urlFile)
				if err != nil {
					return usagef("open %q: %w", urlFile, err)
				}
				defer f.Close()
				r = f
			}
			urls, err := readURLs(r)
			if err != nil {
				return fmt.Errorf("read urls: %w", err)
			}
			if len(urls) == 0 {
				return usagef("no URLs given")
			}

			opts := a.cfg.MirrorOptions(out)
			if workers > 0 {
				opts.Workers = workers
			}
			if attempts > 0 {
				opts.MaxAttempts = attempts
			}
			if !fetch.Mirror(cmd.Context(), a.deps.Getter(a.cfg, a.log), urls, opts, cmd.OutOrStdout()) {
				return errors.New("some pages could not be downloaded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&urlFile, "urls", "", "file with one URL per line (default stdin)")
	cmd.Flags().StringVar(&out, "out", "", "mirror root directory (required)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel downloads (default from config)")
	cmd.Flags().IntVar(&attempts, "max-attempts", 0, "attempts per URL (default from config)")
	return cmd
}

// readURLs returns the non-empty lines of r, skipping "#" comments.
func readURLs(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}
