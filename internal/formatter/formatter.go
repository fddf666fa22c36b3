// package formatter provides CSV catalog reading and failure report export.
package formatter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/likeshift/internal/services"
	"github.com/desertthunder/likeshift/internal/shared"
	"github.com/desertthunder/likeshift/internal/tasks"
)

// CSVCatalog reads a scraped liked-songs export as the source sequence.
//
// The file carries columns index, song_name, artist_name, scraped_at with a
// header row. Rows missing a title or artist are skipped; surviving rows are
// reindexed 1..n so cursor arithmetic stays dense.
type CSVCatalog struct {
	path string
}

// NewCSVCatalog creates a catalog backed by the CSV file at path
func NewCSVCatalog(path string) *CSVCatalog {
	return &CSVCatalog{path: path}
}

// Name returns a short identifier for run summaries
func (c *CSVCatalog) Name() string {
	return fmt.Sprintf("csv:%s", filepath.Base(c.path))
}

// ReadTracks parses the catalog file into the ordered source sequence
func (c *CSVCatalog) ReadTracks(ctx context.Context) ([]services.Track, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return parseCatalog(f)
}

func parseCatalog(r io.Reader) ([]services.Track, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: catalog file is empty", shared.ErrEmptySource)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	titleCol, artistCol := columnIndexes(header)
	if titleCol < 0 || artistCol < 0 {
		return nil, fmt.Errorf("%w: catalog header missing song_name or artist_name", shared.ErrInvalidInput)
	}

	var tracks []services.Track
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog row: %w", err)
		}
		if len(row) <= titleCol || len(row) <= artistCol {
			continue
		}

		track := services.Track{
			Index:  len(tracks) + 1,
			Title:  strings.TrimSpace(row[titleCol]),
			Artist: strings.TrimSpace(row[artistCol]),
		}
		if track.Validate() != nil {
			continue
		}
		tracks = append(tracks, track)
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: catalog contains no usable rows", shared.ErrEmptySource)
	}

	return tracks, nil
}

func columnIndexes(header []string) (title, artist int) {
	title, artist = -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "song_name", "title":
			title = i
		case "artist_name", "artist":
			artist = i
		}
	}
	return title, artist
}

// FailureReportCSV renders failure entries as CSV with columns:
// index, title, artist, reason, detail
func FailureReportCSV(entries []tasks.FailureEntry) ([]byte, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	headers := []string{"index", "title", "artist", "reason", "detail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			strconv.Itoa(entry.Index),
			entry.Title,
			entry.Artist,
			string(entry.Reason),
			entry.Detail,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return []byte(buf.String()), nil
}

// WriteFailureReport writes the failure report CSV to path
func WriteFailureReport(entries []tasks.FailureEntry, path string) error {
	data, err := FailureReportCSV(entries)
	if err != nil {
		return fmt.Errorf("failed to generate failure report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write failure report: %w", err)
	}

	return nil
}
