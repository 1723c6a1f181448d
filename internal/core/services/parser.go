// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
)

// Rejection reasons reported by the CandidateParser.
var (
	ErrTooFewFields = errors.New("too few fields")
	ErrMissingField = errors.New("missing required field")
	ErrTypeMismatch = errors.New("type mismatch")
)

const minimumFields = 3

// ParseOutcome is the result of parsing one line of generative output. When
// Accepted is false, Reason holds one of the rejection errors above.
type ParseOutcome struct {
	Line      string
	Accepted  bool
	Candidate model.Candidate
	Reason    error
}

// CandidateParser turns the pipe-delimited text produced by the recommendation
// prompt into candidates of one media type.
type CandidateParser struct{}

func NewCandidateParser() *CandidateParser {
	return &CandidateParser{}
}

// ParseLine classifies a single trimmed, non-empty line.
func (p *CandidateParser) ParseLine(line string, want model.MediaType) ParseOutcome {
	out := ParseOutcome{Line: line}
	fields := strings.Split(line, "|")
	if len(fields) < minimumFields {
		out.Reason = fmt.Errorf("%w: got %d", ErrTooFewFields, len(fields))
		return out
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	typeField, name, yearField := strings.ToLower(fields[0]), fields[1], fields[2]
	if typeField == "" || name == "" || yearField == "" {
		out.Reason = ErrMissingField
		return out
	}
	if typeField != string(want) {
		out.Reason = fmt.Errorf("%w: %q, want %q", ErrTypeMismatch, typeField, want)
		return out
	}

	year, err := strconv.Atoi(yearField)
	if err != nil {
		year = 0
	}
	var description, relevance string
	if len(fields) > 3 {
		description = fields[3]
	}
	if len(fields) > 4 {
		relevance = strings.Join(fields[4:], "|")
	}

	out.Accepted = true
	out.Candidate = model.NewCandidate(want, name, year, description, relevance)
	return out
}

// Parse splits the generative answer into lines and returns one outcome per
// content line. Code fences, blank lines and the echoed header are skipped.
func (p *CandidateParser) Parse(text string, want model.MediaType) []ParseOutcome {
	lines := strings.Split(cloud.StripCodeFences(text), "\n")
	out := make([]ParseOutcome, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(strings.ToLower(line), "type|") {
			continue
		}
		out = append(out, p.ParseLine(line, want))
	}
	return out
}

// Candidates returns the accepted candidates in output order and logs every
// rejected line at debug level.
func (p *CandidateParser) Candidates(ctx context.Context, text string, want model.MediaType) []model.Candidate {
	out := make([]model.Candidate, 0)
	for _, outcome := range p.Parse(text, want) {
		if !outcome.Accepted {
			slog.DebugContext(ctx, "rejected recommendation line", "line", outcome.Line, "reason", outcome.Reason)
			continue
		}
		out = append(out, outcome.Candidate)
	}
	return out
}
