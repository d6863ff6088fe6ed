package pathresolver

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/binsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_TableFallback(t *testing.T) {
	now := time.Now()

	got := Resolve("{table}/{uid}", &models.BinaryRecord{UID: "42", TableName: "invoice"}, "s1", now)
	assert.Equal(t, "invoice/42", got)

	got = Resolve("{table}/{uid}", &models.BinaryRecord{UID: "42"}, "s1", now)
	assert.Equal(t, "no_table/42", got)
}

func TestResolve_AllPlaceholders(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	rec := &models.BinaryRecord{
		UID:              "u1",
		TableName:        "contract",
		TableUID:         "c7",
		Filename:         "Scan.Final.PDF",
		CreationDatetime: time.Date(2024, 3, 15, 17, 30, 45, 0, loc),
	}
	now := time.Date(2024, 3, 16, 2, 5, 0, 0, loc)

	got := Resolve("{table}/{date}/{time}/{table_uid}_{uid}_{datehour_sync}_{sync_uid}.{ext}", rec, "s9", now)
	assert.Equal(t, "contract/2024-03-15/14_30_45/c7_u1_2024-03-15_23_s9.PDF", got)
}

func TestResolve_DefaultPatternMissingFields(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &models.BinaryRecord{UID: "u1", CreationDatetime: now}

	got := Resolve(DefaultPattern, rec, "s1", now)
	assert.Equal(t, "no_table/2024-01-02/no_uid_u1_2024-01-02_03_s1_", got)
}

func TestResolve_NilRecordNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		Resolve(DefaultPattern, nil, "s1", time.Now())
	})
}

func TestResolve_DistinctSyncUIDs(t *testing.T) {
	rec := &models.BinaryRecord{UID: "u1", TableName: "t", CreationDatetime: time.Now()}
	now := time.Now()

	a := Resolve(DefaultPattern, rec, "attempt-a", now)
	b := Resolve(DefaultPattern, rec, "attempt-b", now)
	assert.NotEqual(t, a, b)
}

func TestJoin(t *testing.T) {
	root := t.TempDir()

	got, err := Join(root, "invoice/2024-01-01/x_y")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "invoice", "2024-01-01", "x_y"), got)

	for _, rel := range []string{"../outside", "a/../../b", "", "."} {
		_, err := Join(root, rel)
		assert.Error(t, err, rel)
	}
}
