package chadwyck

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultProcessConcurrency bounds parallel file parsing. Parsing is
// CPU-bound and files are small, so a modest limit keeps memory flat.
const DefaultProcessConcurrency = 8

// ProcessResult summarizes a directory run.
type ProcessResult struct {
	// FilesParsed counts successfully parsed poems.
	FilesParsed int

	// FilesFailed counts files that could not be parsed.
	FilesFailed int

	// FigureOnly lists files that contained only a figure and no text.
	FigureOnly []string
}

// ProcessDirectory parses every .tml file under inputDir, writes each
// poem's plain text to a .txt file in outputDir, and writes one metadata
// CSV for the whole corpus. A file that fails to parse is logged and
// skipped; one broken poem should not abort a corpus run.
func (p *Parser) ProcessDirectory(ctx context.Context, inputDir, outputDir, csvPath string) (*ProcessResult, error) {
	var paths []string
	err := filepath.WalkDir(inputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".tml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}
	sort.Strings(paths)

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ProcessResult{}
	records := make([]Metadata, 0, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultProcessConcurrency)

	for _, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			poem, err := p.ParseFile(path)
			if err != nil {
				p.logger.Warn("failed to parse file", "path", path, "error", err)
				mu.Lock()
				result.FilesFailed++
				mu.Unlock()
				return nil
			}

			txtName := strings.TrimSuffix(poem.Filename, filepath.Ext(poem.Filename)) + ".txt"
			txtPath := filepath.Join(outputDir, txtName)
			if err := os.WriteFile(txtPath, []byte(poem.Text+"\n"), 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", txtPath, err)
			}

			mu.Lock()
			defer mu.Unlock()
			result.FilesParsed++
			if poem.Text == "" {
				result.FigureOnly = append(result.FigureOnly, poem.Filename)
			}
			records = append(records, poem.Metadata)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Filename < records[j].Filename })
	sort.Strings(result.FigureOnly)

	f, err := os.Create(csvPath) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata csv: %w", err)
	}
	defer f.Close() //nolint:errcheck // Close error caught by csv flush below

	if err := WriteMetadataCSV(f, records); err != nil {
		return nil, err
	}
	return result, nil
}

// metadataHeader is the column layout of the corpus metadata CSV.
var metadataHeader = []string{
	"filename",
	"author_lastname",
	"author_firstname",
	"author_birth",
	"author_death",
	"author_period",
	"transl_lastname",
	"transl_firstname",
	"transl_birth",
	"transl_death",
	"title_id",
	"title_main",
	"title_sub",
	"edition_id",
	"edition_text",
	"period",
	"genre",
	"rhymes",
}

// WriteMetadataCSV writes poem metadata records as CSV with a header row.
func WriteMetadataCSV(w io.Writer, records []Metadata) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(metadataHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, m := range records {
		row := []string{
			m.Filename,
			m.AuthorLastname,
			m.AuthorFirstname,
			m.AuthorBirth,
			m.AuthorDeath,
			m.AuthorPeriod,
			m.TranslLastname,
			m.TranslFirstname,
			m.TranslBirth,
			m.TranslDeath,
			m.TitleID,
			m.TitleMain,
			m.TitleSub,
			m.EditionID,
			m.EditionText,
			m.Period,
			m.Genre,
			m.Rhymes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", m.Filename, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
