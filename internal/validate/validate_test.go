package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks/synapsegenie/internal/formats"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
)

func newMafEntity(t *testing.T, body string) platform.Entity {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data_mutations_extended.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return platform.Entity{ID: "syn1", Name: "data_mutations_extended.txt", Path: path, ModifiedBy: "alice", CreatedBy: "alice"}
}

func newHelper() *Helper {
	reg := registry.New()
	formats.RegisterAll(reg)
	return NewHelper(reg)
}

func TestValidateSingle_ValidFile_SuccessBanner(t *testing.T) {
	entity := newMafEntity(t, "HUGO_SYMBOL\tCHROMOSOME\tSTART_POSITION\tTUMOR_SAMPLE_BARCODE\nTP53\t17\t7578406\tSAMPLE-1\n")
	h := newHelper()

	result, err := h.ValidateSingle(context.Background(), SubmissionUnit{Entities: []platform.Entity{entity}, Center: "DFCI"})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, SuccessBanner, result.Report)
	assert.Equal(t, "maf", result.Filetype)
}

func TestValidateSingle_MissingColumn_ReportsError(t *testing.T) {
	entity := newMafEntity(t, "HUGO_SYMBOL\tCHROMOSOME\nTP53\t17\n")
	h := newHelper()

	result, err := h.ValidateSingle(context.Background(), SubmissionUnit{Entities: []platform.Entity{entity}, Center: "DFCI"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Report, "----------------ERRORS----------------")
	assert.Contains(t, result.Report, "Missing required column(s)")
}

func TestValidateSingle_BlankHugoSymbol_WarningOnly(t *testing.T) {
	entity := newMafEntity(t, "HUGO_SYMBOL\tCHROMOSOME\tSTART_POSITION\tTUMOR_SAMPLE_BARCODE\n\t17\t7578406\tSAMPLE-1\n")
	h := newHelper()

	result, err := h.ValidateSingle(context.Background(), SubmissionUnit{Entities: []platform.Entity{entity}, Center: "DFCI"})
	require.NoError(t, err)
	assert.True(t, result.Valid, "a warning alone must not invalidate the file")
	assert.Contains(t, result.Report, "-------------WARNINGS-------------")
}

func TestValidateSingle_UnmatchedFilename(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "random_file.txt", Path: "/dev/null"}
	h := newHelper()

	result, err := h.ValidateSingle(context.Background(), SubmissionUnit{Entities: []platform.Entity{entity}, Center: "DFCI"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, FiletypeIncorrectMessage, result.Report)
}

func TestValidateSingle_TooManyEntities(t *testing.T) {
	h := newHelper()
	unit := SubmissionUnit{Entities: []platform.Entity{{}, {}, {}}, Center: "DFCI"}
	_, err := h.ValidateSingle(context.Background(), unit)
	require.Error(t, err)
}

func TestValidateSingle_ExplicitFiletypeOverridesDetection(t *testing.T) {
	entity := platform.Entity{ID: "syn1", Name: "whatever.txt", Path: "/dev/null"}
	h := newHelper()
	unit := SubmissionUnit{Entities: []platform.Entity{entity}, Center: "DFCI", ExplicitFiletype: "maf"}
	format, ok := h.DetermineFiletype(unit)
	require.True(t, ok)
	assert.Equal(t, "maf", format.FiletypeTag())
}
