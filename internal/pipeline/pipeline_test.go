package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks/synapsegenie/internal/formats"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
	"github.com/Sage-Bionetworks/synapsegenie/internal/statuscache"
	"github.com/Sage-Bionetworks/synapsegenie/internal/validate"
)

type memObjects struct {
	entities map[string]platform.Entity // containerID/name -> entity
	children map[string][]string        // containerID -> ids
	uploaded []string
}

func newMemObjects() *memObjects {
	return &memObjects{entities: map[string]platform.Entity{}, children: map[string][]string{}}
}

func (m *memObjects) addFile(t *testing.T, containerID, name, body, user string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	id := containerID + "/" + name
	m.entities[id] = platform.Entity{ID: id, Name: name, MD5: body, Path: path, CreatedBy: user, ModifiedBy: user, ModifiedOn: time.Unix(0, 0)}
	m.children[containerID] = append(m.children[containerID], id)
}

func (m *memObjects) ListChildren(ctx context.Context, containerID string) ([]platform.Entity, error) {
	var out []platform.Entity
	for _, id := range m.children[containerID] {
		out = append(out, m.entities[id])
	}
	return out, nil
}
func (m *memObjects) FetchEntity(ctx context.Context, id string) (platform.Entity, error) {
	return m.entities[id], nil
}
func (m *memObjects) CheckReadable(ctx context.Context, containerID string) error { return nil }
func (m *memObjects) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	return parentID + "/" + name, nil
}
func (m *memObjects) UploadArtifact(ctx context.Context, folderID, localPath string) (string, error) {
	m.uploaded = append(m.uploaded, localPath)
	return folderID + "/log", nil
}
func (m *memObjects) SetAnnotation(ctx context.Context, id, key, value string) error { return nil }

type memTables struct {
	rows    map[string][]platform.Row
	nextRow int
}

func newMemTables() *memTables {
	return &memTables{rows: map[string][]platform.Row{}}
}

func (m *memTables) Query(ctx context.Context, table string, filter map[string]string) (platform.TableSnapshot, error) {
	var rows []platform.Row
	var locators []platform.RowLocator
	for _, r := range m.rows[table] {
		match := true
		for k, v := range filter {
			if r[k] != v {
				match = false
				break
			}
		}
		if match {
			rows = append(rows, r)
			locators = append(locators, platform.RowLocator{RowID: r["__row_id"], RowVersion: "1"})
		}
	}
	return platform.TableSnapshot{Rows: stripRowID(rows), Locators: locators}, nil
}

func stripRowID(rows []platform.Row) []platform.Row {
	out := make([]platform.Row, len(rows))
	for i, r := range rows {
		nr := platform.Row{}
		for k, v := range r {
			if k != "__row_id" {
				nr[k] = v
			}
		}
		out[i] = nr
	}
	return out
}

func (m *memTables) ApplyDelta(ctx context.Context, table string, delta platform.Delta) error {
	byID := make(map[string]int)
	for i, r := range m.rows[table] {
		byID[r["__row_id"]] = i
	}
	for _, r := range delta.Appends {
		m.nextRow++
		nr := platform.Row{}
		for k, v := range r {
			nr[k] = v
		}
		nr["__row_id"] = itoa(m.nextRow)
		m.rows[table] = append(m.rows[table], nr)
	}
	for _, u := range delta.Updates {
		if idx, ok := byID[u.Locator.RowID]; ok {
			nr := platform.Row{}
			for k, v := range u.Row {
				nr[k] = v
			}
			nr["__row_id"] = u.Locator.RowID
			m.rows[table][idx] = nr
		}
	}
	var kept []platform.Row
	deleted := make(map[string]bool)
	for _, d := range delta.Deletes {
		deleted[d.RowID] = true
	}
	for _, r := range m.rows[table] {
		if !deleted[r["__row_id"]] {
			kept = append(kept, r)
		}
	}
	m.rows[table] = kept
	return nil
}

func (m *memTables) CreateTable(ctx context.Context, table string, columns []string) error { return nil }
func (m *memTables) RenameTable(ctx context.Context, oldName, newName string) error        { return nil }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func newTestPipeline() (*Pipeline, *memObjects, *memTables) {
	reg := registry.New()
	formats.RegisterAll(reg)
	objects := newMemObjects()
	tables := newMemTables()
	return &Pipeline{
		Objects:   objects,
		Tables:    tables,
		Registry:  reg,
		Validator: validate.NewHelper(reg),
	}, objects, tables
}

func TestRunCenter_ValidFile_Processed(t *testing.T) {
	p, objects, tables := newTestPipeline()
	objects.addFile(t, "input/DFCI", "data_mutations_extended.txt",
		"HUGO_SYMBOL\tCHROMOSOME\tSTART_POSITION\tTUMOR_SAMPLE_BARCODE\nTP53\t17\t7578406\tSAMPLE-1\n", "alice")

	result, err := p.RunCenter(context.Background(), "DFCI", "input/DFCI", Options{LogDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesSeen)
	assert.Equal(t, 1, result.FilesValid)
	assert.Equal(t, 0, result.FilesInvalid)
	assert.NotEmpty(t, tables.rows["maf"])
}

func TestRunCenter_InvalidFile_RecordedInErrorTable(t *testing.T) {
	p, objects, _ := newTestPipeline()
	objects.addFile(t, "input/DFCI", "data_mutations_extended.txt", "HUGO_SYMBOL\tCHROMOSOME\n", "alice")

	result, err := p.RunCenter(context.Background(), "DFCI", "input/DFCI", Options{LogDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesInvalid)
}

func TestRunCenter_DuplicateFilenames_MarkedInvalid(t *testing.T) {
	p, objects, _ := newTestPipeline()
	objects.children["input/DFCI"] = nil
	objects.addFile(t, "input/DFCI", "data_mutations_extended.txt", "HUGO_SYMBOL\tCHROMOSOME\tSTART_POSITION\tTUMOR_SAMPLE_BARCODE\nTP53\t17\t1\tS1\n", "alice")
	// Force a second entity with the same name by re-adding under a distinct id but identical Name.
	dupID := "input/DFCI/data_mutations_extended.txt#2"
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.txt")
	require.NoError(t, os.WriteFile(path, []byte("HUGO_SYMBOL\tCHROMOSOME\tSTART_POSITION\tTUMOR_SAMPLE_BARCODE\nBRCA1\t13\t2\tS2\n"), 0o644))
	objects.entities[dupID] = platform.Entity{ID: dupID, Name: "data_mutations_extended.txt", MD5: "different", Path: path, CreatedBy: "bob", ModifiedBy: "bob"}
	objects.children["input/DFCI"] = append(objects.children["input/DFCI"], dupID)

	result, err := p.RunCenter(context.Background(), "DFCI", "input/DFCI", Options{LogDir: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, result.DuplicateIDs, 2)
	assert.Equal(t, 2, result.FilesInvalid)
}

func TestRunCenter_SecondRunSkipsUnchangedValidation(t *testing.T) {
	p, objects, _ := newTestPipeline()
	objects.addFile(t, "input/DFCI", "data_mutations_extended.txt",
		"HUGO_SYMBOL\tCHROMOSOME\tSTART_POSITION\tTUMOR_SAMPLE_BARCODE\nTP53\t17\t7578406\tSAMPLE-1\n", "alice")

	_, err := p.RunCenter(context.Background(), "DFCI", "input/DFCI", Options{LogDir: t.TempDir()})
	require.NoError(t, err)

	second, err := p.RunCenter(context.Background(), "DFCI", "input/DFCI", Options{LogDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 1, second.FilesValid)
}

func TestRunCenter_NoFiles_NoOp(t *testing.T) {
	p, _, _ := newTestPipeline()
	result, err := p.RunCenter(context.Background(), "DFCI", "input/DFCI", Options{LogDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesSeen)
}

var _ = statuscache.Validated
