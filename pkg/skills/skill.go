/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package skills implements the Skill Index: the primary content store
// keyed by skill id, its files, the deterministic aggregate checksum, and
// the append-only file-history layer.
package skills

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/pkg/analysis"
)

// FileType is the closed set a SkillFile can carry.
type FileType string

const (
	FileTypeSkillMd   FileType = "SkillMd"
	FileTypeReference FileType = "Reference"
	FileTypeAsset     FileType = "Asset"
	FileTypeConfig    FileType = "Config"
	FileTypeOther     FileType = "Other"
)

var validFileTypes = map[FileType]struct{}{
	FileTypeSkillMd: {}, FileTypeReference: {}, FileTypeAsset: {},
	FileTypeConfig: {}, FileTypeOther: {},
}

func (t FileType) Valid() bool {
	if t == "" {
		return true // defaults to Other at construction time
	}
	_, ok := validFileTypes[t]
	return ok
}

// SkillFile is one path-unique file in a skill's current file set.
type SkillFile struct {
	Path      string   `json:"path"`
	Content   string   `json:"content"`
	Checksum  string   `json:"checksum"`
	SizeBytes int64    `json:"size_bytes"`
	FileType  FileType `json:"file_type"`
}

// Checksum computes the SHA-256 hex of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// NewSkillFile builds a SkillFile, computing checksum and size from content.
func NewSkillFile(path, content string, fileType FileType) SkillFile {
	if fileType == "" {
		fileType = FileTypeOther
	}
	return SkillFile{
		Path:      path,
		Content:   content,
		Checksum:  Checksum(content),
		SizeBytes: int64(len(content)),
		FileType:  fileType,
	}
}

// SkillFileVersion is an append-only audit entry for a single file write.
type SkillFileVersion struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	SizeBytes int64     `json:"size_bytes"`
	FetchedAt time.Time `json:"fetched_at"`
	FetchedBy string    `json:"fetched_by"`
	SourceURL string    `json:"source_url,omitempty"`
}

// Skill is the primary Skill Index record.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	SourceURL   string `json:"source_url,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty"`

	Files          []SkillFile `json:"files"`
	FilesChecksum  string      `json:"files_checksum"`
	Stars          int64       `json:"stars"`

	Analysis        *analysis.SkillAnalysis   `json:"analysis,omitempty"`
	AnalysisHistory []analysis.SkillAnalysis  `json:"analysis_history,omitempty"`
	FileHistory     []SkillFileVersion        `json:"file_history,omitempty"`

	InstallCount int64     `json:"install_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SourceTag    string    `json:"source_tag,omitempty"`
}

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ParseID validates the owner/repo[/name] grammar and returns the
// canonical id (owner/repo when name == repo).
func ParseID(id string) (canonical string, owner string, repo string, name string, err error) {
	parts := strings.Split(id, "/")
	if len(parts) != 2 && len(parts) != 3 {
		return "", "", "", "", apperrors.Newf(apperrors.InvalidArgument, "invalid skill id %q: must be owner/repo[/name]", id)
	}
	for _, p := range parts {
		if !segmentPattern.MatchString(p) {
			return "", "", "", "", apperrors.Newf(apperrors.InvalidArgument, "invalid skill id %q: segments must match [A-Za-z0-9._-]+", id)
		}
	}
	owner, repo = parts[0], parts[1]
	if len(parts) == 3 {
		name = parts[2]
	} else {
		name = repo
	}
	if name == repo {
		canonical = owner + "/" + repo
	} else {
		canonical = owner + "/" + repo + "/" + name
	}
	return canonical, owner, repo, name, nil
}

// AggregateChecksum computes the deterministic files-checksum: sort by
// path, concatenate "path:checksum\n", SHA-256 hex.
func AggregateChecksum(files []SkillFile) string {
	sorted := make([]SkillFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var sb strings.Builder
	for _, f := range sorted {
		sb.WriteString(f.Path)
		sb.WriteString(":")
		sb.WriteString(f.Checksum)
		sb.WriteString("\n")
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// ValidateFiles enforces no-duplicate-path and per-file/per-skill caps
//. maxFileSize <= 0 or maxFiles <= 0 disables
// the respective cap.
func ValidateFiles(files []SkillFile, maxFileSize int64, maxFiles int) error {
	if maxFiles > 0 && len(files) > maxFiles {
		return apperrors.Newf(apperrors.InvalidArgument, "too many files: %d exceeds cap %d", len(files), maxFiles)
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, dup := seen[f.Path]; dup {
			return apperrors.Newf(apperrors.InvalidArgument, "duplicate file path %q", f.Path)
		}
		seen[f.Path] = struct{}{}
		if !f.FileType.Valid() {
			return apperrors.Newf(apperrors.InvalidArgument, "unknown file_type %q", f.FileType)
		}
		if maxFileSize > 0 && f.SizeBytes > maxFileSize {
			return apperrors.Newf(apperrors.InvalidArgument, "file %q exceeds size cap of %d bytes", f.Path, maxFileSize)
		}
	}
	return nil
}
