// Package formats holds the concrete FileFormat implementations: clinical
// (a patient+sample pair), maf, and cna. Each is grounded on the field-spec
// driven table definitions in the teacher's internal/core/tables package,
// generalized from CSV-upload-to-Postgres into read/validate/process over
// the platform.TableSnapshot shape the Reconciliation Engine consumes.
package formats

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
)

// readTSV parses a tab-separated file into a TableSnapshot. Lines beginning
// with "#" are treated as comments and skipped, per §6's wire format.
func readTSV(path string) (platform.TableSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return platform.TableSnapshot{}, err
	}
	defer f.Close()

	var header []string
	var rows []platform.Row

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for i, v := range fields {
			fields[i] = cleanCell(v)
		}
		if header == nil {
			header = fields
			continue
		}
		row := make(platform.Row, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return platform.TableSnapshot{}, err
	}
	if header == nil {
		return platform.TableSnapshot{}, fmt.Errorf("%s: empty file, no header row found", path)
	}
	return platform.TableSnapshot{Columns: header, Rows: rows}, nil
}

// cleanCell strips common submission artifacts: surrounding whitespace and
// quotes, Excel's `="value"` formula prefix — generalized from the
// teacher's core.CleanCell.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	s = strings.Trim(s, `"'`)
	return s
}

// hasHeaders returns the names in want that ds's column set lacks
// (case-insensitive); an empty result means every name is present.
func hasHeaders(ds platform.TableSnapshot, want []string) (missing []string) {
	have := make(map[string]bool, len(ds.Columns))
	for _, c := range ds.Columns {
		have[strings.ToUpper(c)] = true
	}
	for _, w := range want {
		if !have[strings.ToUpper(w)] {
			missing = append(missing, w)
		}
	}
	return missing
}

// withCenterColumn returns a copy of ds with a "CENTER" column injected
// (or overwritten) on every row, as §4.2's Process step requires.
func withCenterColumn(ds platform.TableSnapshot, center string) platform.TableSnapshot {
	cols := ds.Columns
	found := false
	for _, c := range cols {
		if strings.EqualFold(c, "CENTER") {
			found = true
			break
		}
	}
	if !found {
		cols = append(append([]string{}, cols...), "CENTER")
	}
	rows := make([]platform.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		newRow := make(platform.Row, len(r)+1)
		for k, v := range r {
			newRow[k] = v
		}
		newRow["CENTER"] = center
		rows[i] = newRow
	}
	return platform.TableSnapshot{Columns: cols, Rows: rows}
}
