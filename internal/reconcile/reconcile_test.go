package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
)

func TestReconcile_AppendOnly(t *testing.T) {
	existing := platform.TableSnapshot{Columns: []string{"id", "name"}}
	desired := platform.TableSnapshot{
		Columns: []string{"id", "name"},
		Rows:    []platform.Row{{"id": "a", "name": "X"}},
	}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)

	assert.Len(t, delta.Appends, 1)
	assert.Empty(t, delta.Updates)
	assert.Empty(t, delta.Deletes)
	assert.Equal(t, "X", delta.Appends[0]["name"])
}

func TestReconcile_UpdateCarriesLocator(t *testing.T) {
	existing := platform.TableSnapshot{
		Columns:  []string{"id", "foo"},
		Rows:     []platform.Row{{"id": "a", "foo": "1"}},
		Locators: []platform.RowLocator{{RowID: "100", RowVersion: "1"}},
	}
	desired := platform.TableSnapshot{
		Columns: []string{"id", "foo"},
		Rows:    []platform.Row{{"id": "a", "foo": "2"}},
	}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)

	require.Len(t, delta.Updates, 1)
	assert.Equal(t, platform.RowLocator{RowID: "100", RowVersion: "1"}, delta.Updates[0].Locator)
	assert.Equal(t, "2", delta.Updates[0].Row["foo"])
	assert.Empty(t, delta.Appends)
	assert.Empty(t, delta.Deletes)
}

func TestReconcile_DeleteByDisappearance(t *testing.T) {
	existing := platform.TableSnapshot{
		Columns:  []string{"id"},
		Rows:     []platform.Row{{"id": "a"}},
		Locators: []platform.RowLocator{{RowID: "1", RowVersion: "1"}},
	}
	desired := platform.TableSnapshot{Columns: []string{"id"}}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)

	assert.Len(t, delta.Deletes, 1)
	assert.Equal(t, platform.RowLocator{RowID: "1", RowVersion: "1"}, delta.Deletes[0])
}

func TestReconcile_EmptyDesiredNoDeletes_IsNoOp(t *testing.T) {
	existing := platform.TableSnapshot{
		Columns:  []string{"id"},
		Rows:     []platform.Row{{"id": "a"}},
		Locators: []platform.RowLocator{{RowID: "1", RowVersion: "1"}},
	}
	desired := platform.TableSnapshot{Columns: []string{"id"}}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: false})
	require.NoError(t, err)
	assert.True(t, delta.Empty())
}

func TestReconcile_UnchangedRow_NoOp(t *testing.T) {
	existing := platform.TableSnapshot{
		Columns:  []string{"id", "name"},
		Rows:     []platform.Row{{"id": "a", "name": "X"}},
		Locators: []platform.RowLocator{{RowID: "1", RowVersion: "1"}},
	}
	desired := platform.TableSnapshot{
		Columns: []string{"id", "name"},
		Rows:    []platform.Row{{"id": "a", "name": "X"}},
	}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)
	assert.True(t, delta.Empty(), "identical rows must not produce an update")
}

func TestReconcile_Idempotent(t *testing.T) {
	existing := platform.TableSnapshot{Columns: []string{"id", "name"}}
	desired := platform.TableSnapshot{
		Columns: []string{"id", "name"},
		Rows: []platform.Row{
			{"id": "a", "name": "X"},
			{"id": "b", "name": "Y"},
		},
	}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)
	require.Len(t, delta.Appends, 2)

	// Apply the delta in memory: the new "existing" is desired's content
	// with synthesized locators, as a real gateway would return it.
	afterFirstRun := platform.TableSnapshot{
		Columns: []string{"id", "name"},
		Rows:    desired.Rows,
		Locators: []platform.RowLocator{
			{RowID: "1", RowVersion: "1"},
			{RowID: "2", RowVersion: "1"},
		},
	}

	second, err := Reconcile(afterFirstRun, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)
	assert.True(t, second.Empty(), "reconciling the same desired state twice must be a no-op the second time")
}

func TestReconcile_DuplicateKeyInDesired_KeepsFirst(t *testing.T) {
	existing := platform.TableSnapshot{Columns: []string{"id", "name"}}
	desired := platform.TableSnapshot{
		Columns: []string{"id", "name"},
		Rows: []platform.Row{
			{"id": "a", "name": "first"},
			{"id": "a", "name": "second"},
		},
	}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)
	require.Len(t, delta.Appends, 1)
	assert.Equal(t, "first", delta.Appends[0]["name"])
}

func TestReconcile_SchemaMismatch(t *testing.T) {
	existing := platform.TableSnapshot{Columns: []string{"id", "name"}, Rows: []platform.Row{{"id": "a", "name": "X"}}}
	desired := platform.TableSnapshot{Columns: []string{"id", "other"}, Rows: []platform.Row{{"id": "a", "other": "Y"}}}

	_, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.Error(t, err)
	var mismatch *errs.SchemaMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestReconcile_IntegerColumnNeverTrailingDotZero(t *testing.T) {
	existing := platform.TableSnapshot{
		Columns: []string{"id", "foo"},
		Rows: []platform.Row{
			{"id": "a", "foo": "1"},
			{"id": "b", "foo": "2"},
			{"id": "c", "foo": "3"},
		},
		Locators: []platform.RowLocator{
			{RowID: "1", RowVersion: "1"},
			{RowID: "2", RowVersion: "1"},
			{RowID: "3", RowVersion: "1"},
		},
	}
	desired := platform.TableSnapshot{
		Columns: []string{"id", "foo"},
		Rows: []platform.Row{
			{"id": "a", "foo": "1"},
			{"id": "b", "foo": "3.0"},
			{"id": "c", "foo": "3"},
		},
	}

	delta, err := Reconcile(existing, desired, Options{PrimaryKey: []string{"id"}, AllowDeletes: true})
	require.NoError(t, err)
	require.Len(t, delta.Updates, 1)
	assert.Equal(t, "3", delta.Updates[0].Row["foo"])
}
