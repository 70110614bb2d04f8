package store

import (
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for an input file.
type FileFingerprint struct {
	Role    string // peaks, annotation, genesets, ...
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(role, path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Role:    role,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// RunInfo describes a run for the runs table.
type RunInfo struct {
	Name        string // e.g. the output prefix plus method
	Genome      string
	Locus       string
	Mappability string
	MinSize     int
	MaxSize     int
	Inputs      []FileFingerprint
	CreatedAt   time.Time // zero means now
}
