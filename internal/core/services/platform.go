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
	"net/http"
	"strings"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
)

const (
	HeaderStremioPlatform  = "stremio-platform"
	HeaderStremioUserAgent = "stremio-user-agent"
	HeaderUserAgent        = "User-Agent"

	DefaultTVDescriptionLimit = 200
)

// PlatformAdapter detects the device class of a request and shapes metas
// for it. Android TV gets short descriptions and smaller posters.
type PlatformAdapter struct {
	TVDescriptionLimit int
}

// NewPlatformAdapter uses DefaultTVDescriptionLimit when the limit is not positive.
func NewPlatformAdapter(tvDescriptionLimit int) *PlatformAdapter {
	if tvDescriptionLimit <= 0 {
		tvDescriptionLimit = DefaultTVDescriptionLimit
	}
	return &PlatformAdapter{TVDescriptionLimit: tvDescriptionLimit}
}

// Classify prefers an explicit stremio-platform header. Without one it
// inspects userAgent, falling back to the stremio-user-agent header and then
// to User-Agent.
func (p *PlatformAdapter) Classify(headers http.Header, userAgent string) model.Platform {
	if explicit := strings.ToLower(strings.TrimSpace(headers.Get(HeaderStremioPlatform))); explicit != "" {
		switch model.Platform(explicit) {
		case model.PlatformAndroidTV, model.PlatformMobile, model.PlatformDesktop:
			return model.Platform(explicit)
		}
		return model.PlatformUnknown
	}

	ua := userAgent
	if ua == "" {
		ua = headers.Get(HeaderStremioUserAgent)
	}
	if ua == "" {
		ua = headers.Get(HeaderUserAgent)
	}
	ua = strings.ToLower(ua)

	switch {
	case containsAny(ua, []string{"android tv", "chromecast", "androidtv"}):
		return model.PlatformAndroidTV
	case containsAny(ua, []string{"android", "mobile", "phone"}):
		return model.PlatformMobile
	case containsAny(ua, []string{"windows", "macintosh", "linux"}):
		return model.PlatformDesktop
	}
	return model.PlatformUnknown
}

// Format returns a copy of meta adjusted for platform. The input is never
// modified since it may be shared through the metadata cache.
func (p *PlatformAdapter) Format(meta *model.EnrichedMeta, platform model.Platform) *model.EnrichedMeta {
	if meta == nil {
		return nil
	}
	out := *meta
	if platform != model.PlatformAndroidTV {
		return &out
	}
	if runes := []rune(out.Description); len(runes) > p.TVDescriptionLimit {
		out.Description = string(runes[:p.TVDescriptionLimit])
	}
	out.Poster = strings.Replace(out.Poster, "/w500/", "/w342/", 1)
	return &out
}
