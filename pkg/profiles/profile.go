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

// Package profiles implements the User Profile Store: a
// mapping identity -> UserProfile with lazy creation on first credential
// set.
package profiles

import (
	"time"

	"github.com/skillcore/coordinator/internal/apperrors"
)

// UserProfile is a per-identity record of credential and activity state.
// The core never decrypts EncryptedCredential; it is an opaque hex blob
// produced client-side.
type UserProfile struct {
	Identity            string    `json:"identity"`
	EncryptedCredential string    `json:"encrypted_credential,omitempty"`
	AnalysesPerformed   int64     `json:"analyses_performed"`
	CreatedAt           time.Time `json:"created_at"`
	LastActive          time.Time `json:"last_active"`
}

// Store is the User Profile Store. Not safe for concurrent use on its own;
// pkg/coordinator serializes access.
type Store struct {
	byIdentity map[string]*UserProfile
}

// NewStore constructs an empty Profile Store.
func NewStore() *Store {
	return &Store{byIdentity: make(map[string]*UserProfile)}
}

func (s *Store) getOrCreate(identity string) *UserProfile {
	profile, ok := s.byIdentity[identity]
	if !ok {
		profile = &UserProfile{Identity: identity, CreatedAt: time.Now()}
		s.byIdentity[identity] = profile
	}
	return profile
}

// SetEncryptedCredential implements set_encrypted_credential(blob): lazy
// creation, update on an existing profile.
func (s *Store) SetEncryptedCredential(identity, blob string) {
	profile := s.getOrCreate(identity)
	profile.EncryptedCredential = blob
	profile.LastActive = time.Now()
}

// RemoveEncryptedCredential implements remove_encrypted_credential():
// clears the blob only, counters survive. A no-op if the profile does not
// exist — there is nothing to remove.
func (s *Store) RemoveEncryptedCredential(identity string) {
	profile, ok := s.byIdentity[identity]
	if !ok {
		return
	}
	profile.EncryptedCredential = ""
	profile.LastActive = time.Now()
}

// HasCredential implements has_credential().
func (s *Store) HasCredential(identity string) bool {
	profile, ok := s.byIdentity[identity]
	return ok && profile.EncryptedCredential != ""
}

// GetMyProfile implements get_my_profile(); NotFound if the identity has
// never set a credential.
func (s *Store) GetMyProfile(identity string) (*UserProfile, error) {
	profile, ok := s.byIdentity[identity]
	if !ok {
		return nil, apperrors.Newf(apperrors.NotFound, "no profile for identity %q", identity)
	}
	return profile, nil
}

// CredentialSnapshot returns the currently stored credential blob for
// capturing into an AnalysisJob.encrypted_credential_snapshot at
// submission time — later profile mutations must not affect in-flight
// jobs.
func (s *Store) CredentialSnapshot(identity string) (string, error) {
	profile, err := s.GetMyProfile(identity)
	if err != nil {
		return "", err
	}
	return profile.EncryptedCredential, nil
}

// Count returns the number of distinct identities that have a profile
// (used by get_stats' total_users field).
func (s *Store) Count() int64 {
	return int64(len(s.byIdentity))
}

// All returns every profile, in no particular order (used for byte
// accounting in get_memory_stats).
func (s *Store) All() []*UserProfile {
	out := make([]*UserProfile, 0, len(s.byIdentity))
	for _, p := range s.byIdentity {
		out = append(out, p)
	}
	return out
}

// StoreSnapshot is the deterministically serializable region for the User
// Profile Store.
type StoreSnapshot struct {
	Profiles []*UserProfile `json:"profiles"`
}

// Snapshot captures the store for the pre-shutdown hook.
func (s *Store) Snapshot() StoreSnapshot {
	return StoreSnapshot{Profiles: s.All()}
}

// Restore replaces the store's state with a prior Snapshot.
func (s *Store) Restore(snap StoreSnapshot) {
	s.byIdentity = make(map[string]*UserProfile, len(snap.Profiles))
	for _, p := range snap.Profiles {
		s.byIdentity[p.Identity] = p
	}
}

// RecordAnalysisCompletion increments analyses_performed for identity
//. Lazily creates a profile if one does not already
// exist, since a requester who submitted a job necessarily has one, but
// defensive against callers invoking it directly.
func (s *Store) RecordAnalysisCompletion(identity string) int64 {
	profile := s.getOrCreate(identity)
	profile.AnalysesPerformed++
	profile.LastActive = time.Now()
	return profile.AnalysesPerformed
}
