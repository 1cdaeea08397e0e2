package domain

import "time"

// ExportVersion is the version of the export document format
const ExportVersion = 1

// ExportDocument is the file exchanged by export and import
type ExportDocument struct {
	Version    int        `json:"version"`
	ExportedAt time.Time  `json:"exportedAt"`
	Sections   []Section  `json:"sections"`
	Snapshots  []Snapshot `json:"snapshots"`
}

// ExportFileName returns the download name of an export made at now
func ExportFileName(now time.Time) string {
	return "networth-export-" + Today(now) + ".json"
}
