// Package models defines the data shared by the binsync client and server.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// BinaryRecord identifies one binary artifact. It is created on the client
// when a file is attached and replaced wholesale by the server on every
// successful sync.
type BinaryRecord struct {
	// UID is stable, unique and never reused.
	UID string `json:"uid"`
	// TableName and TableUID point at the business record owning the binary.
	TableName string `json:"table_name,omitempty"`
	TableUID  string `json:"table_uid,omitempty"`

	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`

	// CreationDatetime is set once, at first creation.
	CreationDatetime time.Time `json:"creation_datetime,omitzero"`

	// Checksum is the server-known digest of the current canonical content.
	// Empty until the first successful upload.
	Checksum string `json:"checksum,omitempty"`
	// SyncUID is the attempt that produced the current canonical content.
	SyncUID string `json:"sync_uid,omitempty"`
}

// Ext returns the filename extension without the leading dot, or "".
func (r *BinaryRecord) Ext() string {
	if r == nil || r.Filename == "" {
		return ""
	}
	return strings.TrimPrefix(filepath.Ext(r.Filename), ".")
}

// Clone returns a copy that can be mutated independently.
func (r *BinaryRecord) Clone() *BinaryRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
