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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides the hardcoded example records used for few-shot
// prompting. Showing the generative model one well formed line in the exact
// delimited format keeps its output parseable.
package model

// RecommendationHeader is the header line of the delimited recommendation
// format. The model is asked to echo it, and the parser discards it.
const RecommendationHeader = "type|name|year|description|relevance"

// GetExampleRecommendation returns a single, correctly formatted
// recommendation line for the given media type.
func GetExampleRecommendation(t MediaType) string {
	if t == MediaTypeSeries {
		return "series|Breaking Bad|2008|A high school chemistry teacher turns to a life of crime|A critically acclaimed series about moral decay"
	}
	return "movie|The Matrix|1999|A computer programmer discovers humanity lives in a simulated reality|A groundbreaking sci-fi film about reality and control"
}

// GetFormatTemplateLine returns the schema line shown to the model, with
// the type column already filled in.
func GetFormatTemplateLine(t MediaType) string {
	return string(t) + "|Title|YYYY|Plot summary|Why this matches the query"
}
