// Package pathresolver turns a storage path pattern and a binary record into
// a relative path under the storage root.
package pathresolver

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/binsync/internal/models"
)

// DefaultPattern includes {sync_uid}, so every attempt lands on its own path.
const DefaultPattern = "{table}/{date}/{table_uid}_{uid}_{datehour_sync}_{sync_uid}_{ext}"

const (
	NoTable = "no_table"
	NoUID   = "no_uid"
)

// Resolve substitutes every placeholder of pattern. Missing record fields
// degrade to placeholders; it never fails. now feeds {datehour_sync}.
func Resolve(pattern string, rec *models.BinaryRecord, syncUID string, now time.Time) string {
	if rec == nil {
		rec = &models.BinaryRecord{}
	}

	table := rec.TableName
	if table == "" {
		table = NoTable
	}
	tableUID := rec.TableUID
	if tableUID == "" {
		tableUID = NoUID
	}

	created := rec.CreationDatetime.UTC()

	r := strings.NewReplacer(
		"{table}", table,
		"{table_uid}", tableUID,
		"{uid}", rec.UID,
		"{ext}", rec.Ext(),
		"{date}", created.Format("2006-01-02"),
		"{time}", created.Format("15_04_05"),
		"{datehour_sync}", now.UTC().Format("2006-01-02_15"),
		"{sync_uid}", syncUID,
	)
	return r.Replace(pattern)
}

// Join places rel under root. Results outside root are refused.
func Join(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(absRoot, filepath.FromSlash(rel))
	r, err := filepath.Rel(absRoot, full)
	if err != nil {
		return "", err
	}
	if r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root", rel)
	}
	return full, nil
}
