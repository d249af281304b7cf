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

package coordinator

import (
	"encoding/json"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/internal/identity"
	"github.com/skillcore/coordinator/pkg/jobs"
	"github.com/skillcore/coordinator/pkg/profiles"
	"github.com/skillcore/coordinator/pkg/prompts"
	"github.com/skillcore/coordinator/pkg/skills"
)

// SnapshotSchemaVersion is tagged onto every Snapshot. Restore rejects a
// snapshot tagged with a newer version; there are no snapshot migration
// functions, so a snapshot tagged with an older version is restored as it
// is. Bump this whenever a container's serialized shape changes.
const SnapshotSchemaVersion = 1

// Snapshot is the versioned, deterministically serializable region covering
// every container the core owns. cmd/coordinator JSON-encodes it with
// MarshalSnapshot and stores it in internal/storage/postgres's core_state
// table on shutdown, and on startup loads and decodes it with
// UnmarshalSnapshot before calling Restore.
type Snapshot struct {
	SchemaVersion int                          `json:"schema_version"`
	Identity      identity.RegistrySnapshot    `json:"identity"`
	Skills        skills.IndexSnapshot         `json:"skills"`
	AnalysisJobs  jobs.AnalysisQueueSnapshot   `json:"analysis_jobs"`
	EnrichJobs    jobs.EnrichmentQueueSnapshot `json:"enrichment_jobs"`
	Prompts       prompts.RegistrySnapshot     `json:"prompts"`
	Profiles      profiles.StoreSnapshot       `json:"profiles"`
}

// Snapshot captures every container under the write lock, so the result is
// a point-in-time view consistent with ordering guarantee O4 (a reader
// never observes a skill's analysis updated without its history prepended,
// or vice versa, because both happen inside the same critical section the
// snapshot also waits on).
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Identity:      c.identity.Snapshot(),
		Skills:        c.skillIdx.Snapshot(),
		AnalysisJobs:  c.analysisQ.Snapshot(),
		EnrichJobs:    c.enrichQ.Snapshot(),
		Prompts:       c.promptReg.Snapshot(),
		Profiles:      c.profileSt.Snapshot(),
	}
}

// Restore replaces every container's state from a prior Snapshot — the
// post-start hook. No migration step runs; Restore only rejects a snapshot
// tagged with a newer schema version than this binary knows about, since
// applying it would silently drop fields.
func (c *Core) Restore(snap Snapshot) error {
	if snap.SchemaVersion > SnapshotSchemaVersion {
		return apperrors.Newf(apperrors.Internal, "snapshot schema version %d is newer than this binary supports (%d)", snap.SchemaVersion, SnapshotSchemaVersion)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity.Restore(snap.Identity)
	c.skillIdx.Restore(snap.Skills)
	c.analysisQ.Restore(snap.AnalysisJobs)
	c.enrichQ.Restore(snap.EnrichJobs)
	c.promptReg.Restore(snap.Prompts)
	c.profileSt.Restore(snap.Profiles)
	return nil
}

// MarshalSnapshot serializes a Snapshot for durable storage.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// UnmarshalSnapshot decodes a Snapshot previously produced by
// MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, apperrors.Wrapf(err, apperrors.Internal, "decoding core snapshot")
	}
	return snap, nil
}
