package schema

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks/synapsegenie/internal/formats"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
)

type fakeObjects struct {
	folders     map[string]string
	annotations map[string]map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{folders: map[string]string{}, annotations: map[string]map[string]string{}}
}

func (f *fakeObjects) ListChildren(ctx context.Context, containerID string) ([]platform.Entity, error) {
	return nil, nil
}
func (f *fakeObjects) FetchEntity(ctx context.Context, id string) (platform.Entity, error) {
	return platform.Entity{}, nil
}
func (f *fakeObjects) CheckReadable(ctx context.Context, containerID string) error { return nil }
func (f *fakeObjects) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	id := parentID + "/" + name
	f.folders[id] = name
	return id, nil
}
func (f *fakeObjects) UploadArtifact(ctx context.Context, folderID, localPath string) (string, error) {
	return folderID + "/uploaded", nil
}
func (f *fakeObjects) SetAnnotation(ctx context.Context, id, key, value string) error {
	if f.annotations[id] == nil {
		f.annotations[id] = map[string]string{}
	}
	f.annotations[id][key] = value
	return nil
}

type fakeTables struct {
	created map[string][]string
	rows    map[string][]platform.Row
	renamed map[string]string
}

func newFakeTables() *fakeTables {
	return &fakeTables{created: map[string][]string{}, rows: map[string][]platform.Row{}, renamed: map[string]string{}}
}

func (f *fakeTables) Query(ctx context.Context, table string, filter map[string]string) (platform.TableSnapshot, error) {
	return platform.TableSnapshot{Rows: f.rows[table]}, nil
}
func (f *fakeTables) ApplyDelta(ctx context.Context, table string, delta platform.Delta) error {
	f.rows[table] = append(f.rows[table], delta.Appends...)
	return nil
}
func (f *fakeTables) CreateTable(ctx context.Context, table string, columns []string) error {
	f.created[table] = columns
	return nil
}
func (f *fakeTables) RenameTable(ctx context.Context, oldName, newName string) error {
	f.renamed[oldName] = newName
	return nil
}

func TestBootstrap_CreatesFixedTablesAndCenterFolders(t *testing.T) {
	objects := newFakeObjects()
	tables := newFakeTables()
	reg := registry.New()
	formats.RegisterAll(reg)

	err := Bootstrap(context.Background(), objects, tables, reg, "syn1", []string{"CENTER_A", "CENTER_B"})
	require.NoError(t, err)

	assert.Contains(t, tables.created, CenterMappingTable)
	assert.Contains(t, tables.created, ValidationStatusTable)
	assert.Contains(t, tables.created, ErrorTrackerTable)
	assert.Contains(t, tables.created, DBMappingTable)
	assert.Len(t, tables.rows[CenterMappingTable], 2)
	assert.Equal(t, DBMappingTable, objects.annotations["syn1"][DBMappingAnnotationKey])
}

func TestReplaceDB_ArchivesAndRewires(t *testing.T) {
	objects := newFakeObjects()
	tables := newFakeTables()
	tables.rows[DBMappingTable] = []platform.Row{{"Database": "maf", "Id": "syn999"}}

	now := time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)
	err := ReplaceDB(context.Background(), objects, tables, formats.MAFFormat{}, "syn-archive", "syn1000", now)
	require.NoError(t, err)

	assert.Equal(t, "ARCHIVED 2023-11-14-syn999", tables.renamed["syn999"])
	assert.Contains(t, tables.created, "syn1000")
	assert.Equal(t, "syn1000", tables.rows[DBMappingTable][len(tables.rows[DBMappingTable])-1]["Id"])
}
