// Package export writes harvest and enrichment results as CSV files and
// reads partition files back for the processing stage.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caldera-data/dirscout/internal/directory"
	"github.com/caldera-data/dirscout/internal/enrich"
)

// Matches only single-letter partition files, never the merged output.
const partitionFilePattern = "startups_?.csv"

// entityHeader is the fixed partition-file schema. Columns are always
// present even when a field is empty.
var entityHeader = []string{"name", "profile_url", "website", "industry", "description"}

// recordHeader extends the entity schema with the enrichment columns.
var recordHeader = []string{
	"name", "profile_url", "website", "industry", "description",
	"has_login", "has_app", "apps_json",
}

// Writer persists results under a single output directory.
type Writer struct {
	dir string
}

// NewWriter ensures dir exists and returns a writer rooted there.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("export.dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// PartitionPath returns the file a partition's entities are written to.
func (w *Writer) PartitionPath(letter string) string {
	return filepath.Join(w.dir, fmt.Sprintf("startups_%s.csv", strings.ToUpper(letter)))
}

// WriteEntities replaces the partition file for letter with the given
// entities. An empty partition still produces a file with only the header,
// so a re-run wipes stale rows from a previous crawl.
func (w *Writer) WriteEntities(letter string, entities []directory.Entity) (string, error) {
	path := w.PartitionPath(letter)
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, []string{e.Name, e.ProfileURL, e.WebsiteURL, e.Industry, e.Description})
	}
	if err := writeFile(path, entityHeader, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRecords replaces the merged enrichment file with the given records.
func (w *Writer) WriteRecords(name string, records []enrich.Record) (string, error) {
	path := filepath.Join(w.dir, name)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		appsJSON := "[]"
		if apps := r.Apps(); len(apps) > 0 {
			raw, err := json.Marshal(apps)
			if err != nil {
				return "", fmt.Errorf("marshal apps for %q: %w", r.Entity.Name, err)
			}
			appsJSON = string(raw)
		}
		e := r.Entity
		rows = append(rows, []string{
			e.Name, e.ProfileURL, e.WebsiteURL, e.Industry, e.Description,
			strconv.FormatBool(r.HasLogin), strconv.FormatBool(r.HasApp()), appsJSON,
		})
	}
	if err := writeFile(path, recordHeader, rows); err != nil {
		return "", err
	}
	return path, nil
}

// LoadEntities reads every partition file under the writer's directory and
// returns their entities in file order. It is the input to the enrich stage.
func (w *Writer) LoadEntities() ([]directory.Entity, error) {
	paths, err := filepath.Glob(filepath.Join(w.dir, partitionFilePattern))
	if err != nil {
		return nil, fmt.Errorf("glob partition files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no partition files under %s, run crawl first", w.dir)
	}

	var entities []directory.Entity
	for _, path := range paths {
		rows, err := readFile(path)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row[0] == "" {
				continue
			}
			entities = append(entities, directory.Entity{
				IdentityKey: row[1],
				Name:        row[0],
				ProfileURL:  row[1],
				WebsiteURL:  row[2],
				Industry:    row[3],
				Description: row[4],
			})
		}
	}
	return entities, nil
}

func writeFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("write row to %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func readFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(entityHeader)
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[1:], nil
}
