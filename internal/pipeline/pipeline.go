// Package pipeline implements the Per-Center Pipeline (§4.7): for one
// center, enumerate its uploaded files, validate (reusing cached outcomes
// per §4.4), detect duplicate filenames (§4.6), reconcile the status and
// error tables (§4.5), notify affected submitters (§4.8), process every
// currently valid file into its format's destination table, and upload the
// run's log artifact. Grounded on the original's
// input_to_database.center_input_to_database/validation for step ordering
// and on the teacher's internal/core.UploadLimiter for the concurrency
// primitive (see limiter.go).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sage-Bionetworks/synapsegenie/internal/duplicate"
	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/logsink"
	"github.com/Sage-Bionetworks/synapsegenie/internal/metrics"
	"github.com/Sage-Bionetworks/synapsegenie/internal/notify"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/reconcile"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
	"github.com/Sage-Bionetworks/synapsegenie/internal/retry"
	"github.com/Sage-Bionetworks/synapsegenie/internal/schema"
	"github.com/Sage-Bionetworks/synapsegenie/internal/statuscache"
	"github.com/Sage-Bionetworks/synapsegenie/internal/validate"
)

// Options configures one RunCenter call.
type Options struct {
	OnlyValidate bool
	DeleteOld    bool
	LogDir       string // where the per-center log file is captured before upload
	LogFolderID  string // destination container for the uploaded log artifact
	Retry        retry.Policy
}

// Pipeline wires the Platform Gateway, Registry, and supporting services
// together to run centers.
type Pipeline struct {
	Objects   platform.ObjectGateway
	Tables    platform.TableGateway
	Registry  *registry.Registry
	Validator *validate.Helper
	Notifier  *notify.Notifier
	Metrics   *metrics.Metrics
}

// CenterResult summarizes one center's run, returned for CLI reporting and
// testing.
type CenterResult struct {
	Center        string
	FilesSeen     int
	FilesValid    int
	FilesInvalid  int
	DuplicateIDs  []string
	LogArtifactID string
}

// RunCenter executes the full §4.7 sequence for one center. inputContainerID
// is the center's input folder id (from the centerMapping table).
func (p *Pipeline) RunCenter(ctx context.Context, center, inputContainerID string, opts Options) (CenterResult, error) {
	result := CenterResult{Center: center}
	started := time.Now()

	sink, err := p.openLogSink(opts, center)
	if err != nil {
		return result, err
	}
	logger := sink.Logger()
	defer sink.Close()
	defer func() {
		if p.Metrics != nil {
			p.Metrics.ObserveCenterDuration(center, time.Since(started))
		}
	}()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Step 1: scratch directory.
	if opts.LogDir != "" && opts.DeleteOld {
		centerDir := filepath.Join(opts.LogDir, center)
		if err := os.RemoveAll(centerDir); err != nil {
			logger.Warn("failed to wipe scratch directory", "error", err)
		}
	}

	// Step 2: enumerate and fetch.
	entities, err := p.listAndFetch(ctx, inputContainerID)
	if err != nil {
		return result, err
	}
	result.FilesSeen = len(entities)
	if len(entities) == 0 {
		logger.Info("center has not uploaded any files")
		return p.finish(ctx, sink, opts, result)
	}

	// Step 3: existing status/error snapshot for this center.
	existingStatusDS, err := p.queryRetry(ctx, opts, schema.ValidationStatusTable, map[string]string{"center": center})
	if err != nil {
		return result, err
	}
	existingErrorDS, err := p.queryRetry(ctx, opts, schema.ErrorTrackerTable, map[string]string{"center": center})
	if err != nil {
		return result, err
	}
	snap := statuscache.NewSnapshot(statusRowsFromSnapshot(existingStatusDS), errorRowsFromSnapshot(existingErrorDS))

	// Step 4: validate (or reuse) every submission unit.
	units := groupSubmissionUnits(entities, p.Registry, center)
	var statusRows []statuscache.StatusRow
	var errorRows []statuscache.ErrorRow
	reports := make(map[notify.Recipient][]notify.Message)

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		decision, err := statuscache.Evaluate(unit.Entities, snap)
		if err != nil {
			return result, err
		}

		if !decision.Revalidate {
			for _, c := range decision.Cached {
				statusRows = append(statusRows, c.Status)
				if c.Status.Status == statuscache.Invalid {
					errorRows = append(errorRows, c.Error)
				}
			}
			continue
		}

		vresult, err := p.Validator.ValidateSingle(ctx, unit)
		if err != nil {
			return result, err
		}

		status := statuscache.Validated
		if !vresult.Valid {
			status = statuscache.Invalid
		}
		for _, e := range unit.Entities {
			statusRows = append(statusRows, statuscache.StatusRow{
				ID: e.ID, MD5: e.MD5, Status: status, Name: e.Name,
				Center: center, ModifiedOn: e.ModifiedOn.Format(time.RFC3339), FileType: vresult.Filetype,
			})
			if !vresult.Valid {
				errorRows = append(errorRows, statuscache.ErrorRow{
					ID: e.ID, Errors: vresult.Report, Name: e.Name, FileType: vresult.Filetype, Center: center,
				})
			}
		}

		if !vresult.Valid {
			addReport(reports, unit.Entities, vresult.Report)
		}
	}

	// Step 5: duplicate detection, then reconcile status/error tables.
	statusRows, errorRows = duplicate.Detect(statusRows, errorRows)
	for _, r := range errorRows {
		if r.Errors == errs.DuplicateFilename {
			result.DuplicateIDs = append(result.DuplicateIDs, r.ID)
		}
	}
	for _, r := range statusRows {
		if r.Status == statuscache.Invalid {
			result.FilesInvalid++
			if p.Metrics != nil {
				p.Metrics.FilesInvalid.WithLabelValues(center, r.FileType).Inc()
			}
		} else {
			result.FilesValid++
			if p.Metrics != nil {
				p.Metrics.FilesValidated.WithLabelValues(center, r.FileType).Inc()
			}
		}
	}

	statusDelta, err := reconcile.Reconcile(existingStatusDS, desiredStatusSnapshot(statusRows), reconcile.Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	if err != nil {
		return result, err
	}
	if err := p.applyDeltaRetry(ctx, opts, schema.ValidationStatusTable, statusDelta); err != nil {
		return result, err
	}

	errorDelta, err := reconcile.Reconcile(existingErrorDS, desiredErrorSnapshot(errorRows), reconcile.Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	if err != nil {
		return result, err
	}
	if err := p.applyDeltaRetry(ctx, opts, schema.ErrorTrackerTable, errorDelta); err != nil {
		return result, err
	}

	// Step 6: notify.
	if p.Notifier != nil {
		p.Notifier.Send(ctx, notify.Consolidate(reports), started)
	}

	// Step 7: process valid files into their format tables.
	if !opts.OnlyValidate {
		if err := p.processValidFiles(ctx, opts, center, units, statusRows); err != nil {
			return result, err
		}
	}

	return p.finish(ctx, sink, opts, result)
}

func (p *Pipeline) openLogSink(opts Options, center string) (*logsink.Sink, error) {
	dir := opts.LogDir
	if dir == "" {
		dir = os.TempDir()
	}
	return logsink.New(dir, center, fmt.Sprintf("%s-%d", center, time.Now().UnixNano()))
}

func (p *Pipeline) finish(ctx context.Context, sink *logsink.Sink, opts Options, result CenterResult) (CenterResult, error) {
	if opts.LogFolderID == "" {
		sink.Close()
		return result, nil
	}
	id, err := sink.Upload(ctx, p.Objects, opts.LogFolderID)
	if err != nil {
		return result, fmt.Errorf("upload log artifact: %w", err)
	}
	result.LogArtifactID = id
	return result, nil
}

func (p *Pipeline) listAndFetch(ctx context.Context, containerID string) ([]platform.Entity, error) {
	children, err := p.Objects.ListChildren(ctx, containerID)
	if err != nil {
		return nil, err
	}
	entities := make([]platform.Entity, len(children))
	for i, e := range children {
		full, err := p.Objects.FetchEntity(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		entities[i] = full
	}
	return entities, nil
}

func (p *Pipeline) queryRetry(ctx context.Context, opts Options, table string, filter map[string]string) (platform.TableSnapshot, error) {
	var ds platform.TableSnapshot
	err := retry.Do(ctx, opts.Retry, func(ctx context.Context) error {
		var err error
		ds, err = p.Tables.Query(ctx, table, filter)
		return err
	})
	return ds, err
}

func (p *Pipeline) applyDeltaRetry(ctx context.Context, opts Options, table string, delta platform.Delta) error {
	if delta.Empty() {
		return nil
	}
	return retry.Do(ctx, opts.Retry, func(ctx context.Context) error {
		return p.Tables.ApplyDelta(ctx, table, delta)
	})
}

// processValidFiles re-reads and processes every unit whose current status
// is VALIDATED, then reconciles each format's produced dataset into its
// destination table, scoped to this center so concurrent centers never
// collide (§5's key-partitioned writes).
func (p *Pipeline) processValidFiles(ctx context.Context, opts Options, center string, units []validate.SubmissionUnit, statusRows []statuscache.StatusRow) error {
	validIDs := make(map[string]bool, len(statusRows))
	for _, r := range statusRows {
		if r.Status == statuscache.Validated {
			validIDs[r.ID] = true
		}
	}

	produced := make(map[string]platform.TableSnapshot) // destination table -> accumulated desired rows
	formatByTable := make(map[string]registry.FileFormat)

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(unit.Entities) == 0 || !validIDs[unit.Entities[0].ID] {
			continue
		}

		format, ok := p.Validator.DetermineFiletype(unit)
		if !ok {
			continue
		}

		ds, err := format.Read(ctx, unit.Entities)
		if err != nil {
			var rf *errs.ReadFailure
			if asReadFailure(err, &rf) {
				continue // file disappeared or became unreadable between validate and process; skip this run
			}
			return err
		}
		processed, err := format.Process(ctx, ds, registry.Kwargs{"center": center})
		if err != nil {
			return err
		}

		table := format.DestinationTable()
		formatByTable[table] = format
		acc := produced[table]
		acc.Columns = processed.Columns
		acc.Rows = append(acc.Rows, processed.Rows...)
		produced[table] = acc
	}

	for table, desired := range produced {
		format := formatByTable[table]
		existing, err := p.queryRetry(ctx, opts, table, map[string]string{"CENTER": center})
		if err != nil {
			return err
		}
		delta, err := reconcile.Reconcile(existing, desired, reconcile.Options{PrimaryKey: format.PrimaryKey(), AllowDeletes: true})
		if err != nil {
			return err
		}
		if err := p.applyDeltaRetry(ctx, opts, table, delta); err != nil {
			return err
		}
	}
	return nil
}

func asReadFailure(err error, target **errs.ReadFailure) bool {
	if rf, ok := err.(*errs.ReadFailure); ok {
		*target = rf
		return true
	}
	return false
}

func addReport(reports map[notify.Recipient][]notify.Message, entities []platform.Entity, message string) {
	filenames := make([]string, len(entities))
	for i, e := range entities {
		filenames[i] = e.Name
	}

	recipients := make(map[string]notify.Recipient)
	for _, e := range entities {
		if e.CreatedBy != "" {
			recipients[e.CreatedBy] = notify.Recipient{ID: e.CreatedBy, DisplayName: e.CreatedBy, Email: e.CreatedBy}
		}
		if e.ModifiedBy != "" {
			recipients[e.ModifiedBy] = notify.Recipient{ID: e.ModifiedBy, DisplayName: e.ModifiedBy, Email: e.ModifiedBy}
		}
	}
	for _, r := range recipients {
		reports[r] = append(reports[r], notify.Message{Filenames: filenames, Text: message})
	}
}
