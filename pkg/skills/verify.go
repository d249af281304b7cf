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

package skills

// ChecksumMismatch reports a file whose stored checksum disagrees with a
// caller-provided claim.
type ChecksumMismatch struct {
	Path     string `json:"path"`
	Stored   string `json:"stored"`
	Provided string `json:"provided"`
}

// VerifyReport is the structured result of verify_skill_files.
type VerifyReport struct {
	FilesChecked int                `json:"files_checked"`
	FilesValid   int                `json:"files_valid"`
	Invalid      []ChecksumMismatch `json:"invalid"`
	Missing      []string           `json:"missing"`
	Extra        []string           `json:"extra"`
	IsValid      bool               `json:"is_valid"`
}

// VerifyFileChecksum is a pure query comparing a claimed checksum against
// the stored one for a single path.
func (idx *Index) VerifyFileChecksum(id, path, claimed string) (bool, error) {
	skill, err := idx.Get(id)
	if err != nil {
		return false, err
	}
	for _, f := range skill.Files {
		if f.Path == path {
			return f.Checksum == claimed, nil
		}
	}
	return false, nil
}

// ClaimedChecksum pairs a path with a caller-asserted checksum, the input
// shape for VerifySkillFiles.
type ClaimedChecksum struct {
	Path     string
	Checksum string
}

// VerifySkillFiles is a pure query: for each claimed (path, checksum) it
// reports whether the stored checksum matches, plus paths that are stored
// but not claimed (missing) and claimed but not stored (extra).
func (idx *Index) VerifySkillFiles(id string, claims []ClaimedChecksum) (VerifyReport, error) {
	skill, err := idx.Get(id)
	if err != nil {
		return VerifyReport{}, err
	}

	stored := make(map[string]string, len(skill.Files))
	for _, f := range skill.Files {
		stored[f.Path] = f.Checksum
	}

	claimedPaths := make(map[string]struct{}, len(claims))
	report := VerifyReport{FilesChecked: len(claims)}

	for _, c := range claims {
		claimedPaths[c.Path] = struct{}{}
		storedChecksum, ok := stored[c.Path]
		if !ok {
			report.Extra = append(report.Extra, c.Path)
			continue
		}
		if storedChecksum == c.Checksum {
			report.FilesValid++
		} else {
			report.Invalid = append(report.Invalid, ChecksumMismatch{
				Path: c.Path, Stored: storedChecksum, Provided: c.Checksum,
			})
		}
	}

	for path := range stored {
		if _, claimed := claimedPaths[path]; !claimed {
			report.Missing = append(report.Missing, path)
		}
	}

	report.IsValid = len(report.Invalid) == 0 && len(report.Missing) == 0 && len(report.Extra) == 0
	return report, nil
}
