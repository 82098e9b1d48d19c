/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Station is a cataloged live radio source with ranked candidate URLs.
type Station struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"index" json:"name"`
	Subtitle  string `json:"subtitle"`
	Image     string `json:"image"`
	Region    string `gorm:"index" json:"region"`
	StreamLow string `json:"streamLow,omitempty"` // legacy m3u8
	MP3Low    string `json:"mp3Low,omitempty"`
	MP3High   string `json:"mp3High,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// CandidateURLs returns the station's stream URLs in preference order,
// highest quality first.
func (s Station) CandidateURLs() []string {
	return []string{s.MP3High, s.MP3Low, s.StreamLow}
}

// BestStreamURL returns the highest ranked non-empty candidate URL.
func (s Station) BestStreamURL() string {
	for _, u := range s.CandidateURLs() {
		if u != "" {
			return u
		}
	}
	return ""
}

// StationView is a station as presented to clients, with candidate URLs
// replaced by a same-origin relay URL.
type StationView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subtitle  string `json:"subtitle"`
	Image     string `json:"image"`
	Region    string `json:"region"`
	StreamURL string `json:"streamUrl"`
}

// ServerStatus is the /health payload.
type ServerStatus struct {
	Running       bool `json:"running"`
	Port          int  `json:"port"`
	ActiveStreams int  `json:"activeStreams"`
	TotalStations int  `json:"totalStations"`
}

// CrawlProgress reports catalog crawl advancement.
type CrawlProgress struct {
	Current       int    `json:"current"`
	Total         int    `json:"total"`
	Region        string `json:"region"`
	StationsFound int    `json:"stationsFound"`
}

// RegionStat counts stations per region.
type RegionStat struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}
