package formats

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
)

// ClinicalFormat is the patient+sample clinical pair: two physical files
// validated and reconciled as a single logical submission, merged on
// PATIENT_ID and keyed by SAMPLE_ID. Grounded on the original's example_filetype_format clinical
// pair and the teacher's per-table field-spec pattern in
// internal/core/tables/anrok.go.
type ClinicalFormat struct{}

var _ registry.FileFormat = ClinicalFormat{}

func (ClinicalFormat) FiletypeTag() string { return "clinical" }

func (ClinicalFormat) EntityCount() int { return 2 }

func (ClinicalFormat) FiletypeMatches(filenames []string) bool {
	if len(filenames) != 2 {
		return false
	}
	hasPatient, hasSample := false, false
	for _, f := range filenames {
		lower := strings.ToLower(f)
		if strings.Contains(lower, "data_clinical_patient") {
			hasPatient = true
		}
		if strings.Contains(lower, "data_clinical_sample") {
			hasSample = true
		}
	}
	return hasPatient && hasSample
}

func (ClinicalFormat) Read(ctx context.Context, entities []platform.Entity) (platform.TableSnapshot, error) {
	if len(entities) != 2 {
		return platform.TableSnapshot{}, &errs.InvariantViolation{Detail: "clinical format requires exactly two entities"}
	}
	var patient, sample platform.TableSnapshot
	for _, e := range entities {
		ds, err := readTSV(e.Path)
		if err != nil {
			return platform.TableSnapshot{}, &errs.ReadFailure{Path: e.Path, Err: err}
		}
		if strings.Contains(strings.ToLower(e.Name), "patient") {
			patient = ds
		} else {
			sample = ds
		}
	}
	return mergeOnPatientID(patient, sample), nil
}

// mergeOnPatientID left-joins sample rows onto patient rows by PATIENT_ID,
// producing one wide row per sample (patients without samples appear once
// with sample columns blank).
func mergeOnPatientID(patient, sample platform.TableSnapshot) platform.TableSnapshot {
	columns := append([]string{}, patient.Columns...)
	for _, c := range sample.Columns {
		if c == "PATIENT_ID" {
			continue
		}
		columns = append(columns, c)
	}

	byPatient := make(map[string]platform.Row, len(patient.Rows))
	for _, r := range patient.Rows {
		byPatient[r["PATIENT_ID"]] = r
	}

	var rows []platform.Row
	seen := make(map[string]bool)
	for _, s := range sample.Rows {
		pid := s["PATIENT_ID"]
		seen[pid] = true
		row := make(platform.Row, len(columns))
		if p, ok := byPatient[pid]; ok {
			for _, c := range patient.Columns {
				row[c] = p[c]
			}
		}
		for _, c := range sample.Columns {
			row[c] = s[c]
		}
		rows = append(rows, row)
	}
	for pid, p := range byPatient {
		if seen[pid] {
			continue
		}
		row := make(platform.Row, len(columns))
		for _, c := range patient.Columns {
			row[c] = p[c]
		}
		for _, c := range sample.Columns {
			if c == "PATIENT_ID" {
				row[c] = pid
				continue
			}
			row[c] = ""
		}
		rows = append(rows, row)
	}

	return platform.TableSnapshot{Columns: columns, Rows: rows}
}

func (ClinicalFormat) Validate(ctx context.Context, ds platform.TableSnapshot, kwargs registry.Kwargs) (string, string, error) {
	var errLines, warnLines []string

	if missing := hasHeaders(ds, []string{"PATIENT_ID", "SAMPLE_ID"}); len(missing) > 0 {
		errLines = append(errLines, fmt.Sprintf("Missing required column(s): %s", strings.Join(missing, ", ")))
	}
	seen := make(map[string]bool)
	for i, row := range ds.Rows {
		sid := row["SAMPLE_ID"]
		if sid == "" {
			errLines = append(errLines, fmt.Sprintf("Row %d: SAMPLE_ID must not be blank", i+1))
			continue
		}
		if seen[sid] {
			warnLines = append(warnLines, fmt.Sprintf("SAMPLE_ID %s appears more than once", sid))
		}
		seen[sid] = true
		if row["PATIENT_ID"] == "" {
			errLines = append(errLines, fmt.Sprintf("Row %d: PATIENT_ID must not be blank", i+1))
		}
	}

	return strings.Join(errLines, "\n"), strings.Join(warnLines, "\n"), nil
}

func (ClinicalFormat) Process(ctx context.Context, ds platform.TableSnapshot, kwargs registry.Kwargs) (platform.TableSnapshot, error) {
	if err := kwargs.Require([]string{"center"}); err != nil {
		return platform.TableSnapshot{}, err
	}
	upper := upperColumns(ds)
	return withCenterColumn(upper, kwargs["center"]), nil
}

func (ClinicalFormat) RequiredValidateKwargs() []string { return nil }
func (ClinicalFormat) RequiredProcessKwargs() []string  { return []string{"center"} }
func (ClinicalFormat) PrimaryKey() []string             { return []string{"SAMPLE_ID"} }
func (ClinicalFormat) DestinationTable() string         { return "clinical" }

func upperColumns(ds platform.TableSnapshot) platform.TableSnapshot {
	cols := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = strings.ToUpper(c)
	}
	rows := make([]platform.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		nr := make(platform.Row, len(r))
		for k, v := range r {
			nr[strings.ToUpper(k)] = v
		}
		rows[i] = nr
	}
	return platform.TableSnapshot{Columns: cols, Rows: rows}
}
