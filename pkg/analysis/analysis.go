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

// Package analysis defines the rated-report shape a worker produces for a
// skill: Ratings, TopicRating, RatingFlag and the enclosing SkillAnalysis,
// plus the closed enums the wire schema must validate against.
package analysis

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/skillcore/coordinator/internal/apperrors"
)

// Topic is one of the fixed analysis dimensions (FIXED_TOPIC_SET).
type Topic string

const (
	TopicQuality         Topic = "Quality"
	TopicDocumentation   Topic = "Documentation"
	TopicMaintainability Topic = "Maintainability"
	TopicCompleteness    Topic = "Completeness"
	TopicSecurity        Topic = "Security"
	TopicMalicious       Topic = "Malicious"
	TopicPrivacy         Topic = "Privacy"
	TopicUsability       Topic = "Usability"
	TopicCompatibility   Topic = "Compatibility"
	TopicPerformance     Topic = "Performance"
	TopicTrustworthiness Topic = "Trustworthiness"
	TopicMaintenance     Topic = "Maintenance"
	TopicCommunity       Topic = "Community"
)

var validTopics = map[Topic]struct{}{
	TopicQuality: {}, TopicDocumentation: {}, TopicMaintainability: {},
	TopicCompleteness: {}, TopicSecurity: {}, TopicMalicious: {},
	TopicPrivacy: {}, TopicUsability: {}, TopicCompatibility: {},
	TopicPerformance: {}, TopicTrustworthiness: {}, TopicMaintenance: {},
	TopicCommunity: {},
}

func (t Topic) Valid() bool {
	_, ok := validTopics[t]
	return ok
}

// FlagType is one of the fixed rating-flag categories (FIXED_FLAG_SET).
type FlagType string

const (
	FlagSecurityRisk         FlagType = "SecurityRisk"
	FlagMaliciousPattern     FlagType = "MaliciousPattern"
	FlagPrivacyConcern       FlagType = "PrivacyConcern"
	FlagUnmaintained         FlagType = "Unmaintained"
	FlagDeprecated           FlagType = "Deprecated"
	FlagExcessivePermissions FlagType = "ExcessivePermissions"
	FlagUnverifiedSource     FlagType = "UnverifiedSource"
	FlagKnownVulnerability   FlagType = "KnownVulnerability"
)

var validFlagTypes = map[FlagType]struct{}{
	FlagSecurityRisk: {}, FlagMaliciousPattern: {}, FlagPrivacyConcern: {},
	FlagUnmaintained: {}, FlagDeprecated: {}, FlagExcessivePermissions: {},
	FlagUnverifiedSource: {}, FlagKnownVulnerability: {},
}

func (f FlagType) Valid() bool {
	_, ok := validFlagTypes[f]
	return ok
}

// Severity is the urgency of a RatingFlag.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

var validSeverities = map[Severity]struct{}{
	SeverityInfo: {}, SeverityWarning: {}, SeverityCritical: {},
}

func (s Severity) Valid() bool {
	_, ok := validSeverities[s]
	return ok
}

// TopicRating scores one fixed topic.
type TopicRating struct {
	Topic      Topic   `json:"topic"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// RatingFlag calls out a specific concern.
type RatingFlag struct {
	FlagType FlagType `json:"flag_type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Ratings is the overall rating envelope.
type Ratings struct {
	Overall float64       `json:"overall"`
	Topics  []TopicRating `json:"topics"`
	Flags   []RatingFlag  `json:"flags"`
}

// SkillAnalysis is a single, immutable analysis-history entry.
type SkillAnalysis struct {
	Ratings Ratings `json:"ratings"`

	PrimaryCategory     string   `json:"primary_category"`
	SecondaryCategories  []string `json:"secondary_categories,omitempty"`
	Tags                 []string `json:"tags,omitempty"`

	HasMCP              bool `json:"has_mcp"`
	ProvidesMCP         bool `json:"provides_mcp"`
	HasReferences       bool `json:"has_references"`
	HasAssets           bool `json:"has_assets"`
	EstimatedTokenUsage int  `json:"estimated_token_usage"`

	Summary             string   `json:"summary"`
	Strengths           []string `json:"strengths,omitempty"`
	Weaknesses          []string `json:"weaknesses,omitempty"`
	UseCases            []string `json:"use_cases,omitempty"`
	CompatibilityNotes  string   `json:"compatibility_notes,omitempty"`
	Prerequisites       []string `json:"prerequisites,omitempty"`

	MCPDependencies      []string `json:"mcp_dependencies,omitempty"`
	SoftwareDependencies []string `json:"software_dependencies,omitempty"`

	ReferencedFiles []string `json:"referenced_files,omitempty"`
	ReferencedURLs  []string `json:"referenced_urls,omitempty"`

	AnalyzedAt       time.Time `json:"analyzed_at"`
	AnalyzedBy       string    `json:"analyzed_by"`
	ModelUsed        string    `json:"model_used"`
	AnalysisVersion  string    `json:"analysis_version"`
	TeeWorkerVersion string    `json:"tee_worker_version,omitempty"`
	PromptVersion    string    `json:"prompt_version,omitempty"`
}

// wireSkillAnalysis is the JSON shape a worker submits; it omits
// provenance fields the core itself populates, so unknown/missing
// provenance in the payload is never mistaken for a real value.
type wireSkillAnalysis struct {
	Ratings *struct {
		Overall *float64 `json:"overall"`
		Topics  []struct {
			Topic      string   `json:"topic"`
			Score      *float64 `json:"score"`
			Confidence *float64 `json:"confidence"`
			Reasoning  string   `json:"reasoning"`
		} `json:"topics"`
		Flags []struct {
			FlagType string `json:"flag_type"`
			Severity string `json:"severity"`
			Message  string `json:"message"`
		} `json:"flags"`
	} `json:"ratings"`

	PrimaryCategory      string   `json:"primary_category"`
	SecondaryCategories  []string `json:"secondary_categories"`
	Tags                 []string `json:"tags"`

	HasMCP              bool `json:"has_mcp"`
	ProvidesMCP         bool `json:"provides_mcp"`
	HasReferences       bool `json:"has_references"`
	HasAssets           bool `json:"has_assets"`
	EstimatedTokenUsage int  `json:"estimated_token_usage"`

	Summary            string   `json:"summary"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	UseCases           []string `json:"use_cases"`
	CompatibilityNotes string   `json:"compatibility_notes"`
	Prerequisites      []string `json:"prerequisites"`

	MCPDependencies      []string `json:"mcp_dependencies"`
	SoftwareDependencies []string `json:"software_dependencies"`

	ReferencedFiles []string `json:"referenced_files"`
	ReferencedURLs  []string `json:"referenced_urls"`
}

// ParseSkillAnalysis validates and decodes the JSON payload a worker
// submits via submit_job_result(_with_metadata). Required fields missing,
// or fields of the wrong type, map to InvalidArgument. Provenance fields
// are never taken from the payload.
func ParseSkillAnalysis(analysisJSON string) (*SkillAnalysis, error) {
	var wire wireSkillAnalysis
	dec := json.NewDecoder(strings.NewReader(analysisJSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.InvalidArgument, "malformed analysis_json")
	}

	if wire.Ratings == nil {
		return nil, apperrors.NewInvalidArgument("ratings is required")
	}
	if wire.Ratings.Overall == nil {
		return nil, apperrors.NewInvalidArgument("ratings.overall is required")
	}
	overall := *wire.Ratings.Overall
	if overall < 0.0 || overall > 5.0 {
		return nil, apperrors.NewInvalidArgument("ratings.overall must be in [0.0, 5.0]")
	}
	if wire.PrimaryCategory == "" {
		return nil, apperrors.NewInvalidArgument("primary_category is required")
	}
	if wire.Summary == "" {
		return nil, apperrors.NewInvalidArgument("summary is required")
	}

	topics := make([]TopicRating, 0, len(wire.Ratings.Topics))
	for _, t := range wire.Ratings.Topics {
		if t.Score == nil || t.Confidence == nil {
			return nil, apperrors.NewInvalidArgument("topic rating score/confidence are required")
		}
		topic := Topic(t.Topic)
		if !topic.Valid() {
			return nil, apperrors.Newf(apperrors.InvalidArgument, "unknown topic %q", t.Topic)
		}
		if *t.Score < 0 || *t.Score > 100 || *t.Confidence < 0 || *t.Confidence > 100 {
			return nil, apperrors.NewInvalidArgument("topic score/confidence must be in [0, 100]")
		}
		topics = append(topics, TopicRating{
			Topic: topic, Score: *t.Score, Confidence: *t.Confidence, Reasoning: t.Reasoning,
		})
	}

	flags := make([]RatingFlag, 0, len(wire.Ratings.Flags))
	for _, f := range wire.Ratings.Flags {
		flagType := FlagType(f.FlagType)
		if !flagType.Valid() {
			return nil, apperrors.Newf(apperrors.InvalidArgument, "unknown flag_type %q", f.FlagType)
		}
		severity := Severity(f.Severity)
		if !severity.Valid() {
			return nil, apperrors.Newf(apperrors.InvalidArgument, "unknown severity %q", f.Severity)
		}
		flags = append(flags, RatingFlag{FlagType: flagType, Severity: severity, Message: f.Message})
	}

	return &SkillAnalysis{
		Ratings:              Ratings{Overall: overall, Topics: topics, Flags: flags},
		PrimaryCategory:      wire.PrimaryCategory,
		SecondaryCategories:  wire.SecondaryCategories,
		Tags:                 wire.Tags,
		HasMCP:               wire.HasMCP,
		ProvidesMCP:          wire.ProvidesMCP,
		HasReferences:        wire.HasReferences,
		HasAssets:            wire.HasAssets,
		EstimatedTokenUsage:  wire.EstimatedTokenUsage,
		Summary:              wire.Summary,
		Strengths:            wire.Strengths,
		Weaknesses:           wire.Weaknesses,
		UseCases:             wire.UseCases,
		CompatibilityNotes:   wire.CompatibilityNotes,
		Prerequisites:        wire.Prerequisites,
		MCPDependencies:      wire.MCPDependencies,
		SoftwareDependencies: wire.SoftwareDependencies,
		ReferencedFiles:      wire.ReferencedFiles,
		ReferencedURLs:       wire.ReferencedURLs,
	}, nil
}

