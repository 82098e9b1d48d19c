/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist renders the relay's station list as a live_streams.sii
// file for Euro Truck Simulator 2.
package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/friendsincode/skald_relay/internal/models"
)

// Generator renders playlist files pointing at a relay instance.
type Generator struct {
	host string
	port int
}

// NewGenerator creates a generator for the given relay address.
func NewGenerator(host string, port int) *Generator {
	return &Generator{host: host, port: port}
}

// Generate renders the SiiNunit playlist. Each entry is
// "URL|Name|Genre|Language|Bitrate|Favorite"; the game only accepts ASCII
// names, so station names are transliterated.
func (g *Generator) Generate(stations []models.Station) string {
	var b strings.Builder

	fmt.Fprintf(&b, `SiiNunit
{
# Generated by skaldrelay at %s
#
# Copy this file to:
#   %%USERPROFILE%%\Documents\Euro Truck Simulator 2\live_streams.sii
# and keep the relay running while playing.

live_stream_def : .live_streams {
 stream_data: %d
`, time.Now().Format("2006-01-02 15:04:05"), len(stations))

	for i, station := range stations {
		streamURL := fmt.Sprintf("http://%s:%d/stream/%s", g.host, g.port, station.ID)
		fmt.Fprintf(&b, " stream_data[%d]: \"%s|%s|%s|CN|128|0\"\n",
			i, streamURL, EnglishName(station.Name), Genre(station.Name))
	}

	b.WriteString("}\n}\n")
	return b.String()
}

// WriteFile writes the playlist, creating parent directories as needed.
func (g *Generator) WriteFile(content, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create playlist directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	return nil
}

// Install writes the playlist into the first detected game documents
// directory and returns the target path.
func (g *Generator) Install(content string) (string, error) {
	paths := GamePaths()
	if len(paths) == 0 {
		return "", fmt.Errorf("no Euro Truck Simulator 2 documents directory found")
	}

	target := filepath.Join(paths[0], "live_streams.sii")
	if err := g.WriteFile(content, target); err != nil {
		return "", err
	}
	return target, nil
}

// GamePaths returns existing game documents directories, checking the
// standard Documents layout and the OneDrive-redirected one.
func GamePaths() []string {
	var paths []string

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	candidates := []string{
		filepath.Join(home, "Documents", "Euro Truck Simulator 2"),
		filepath.Join(home, "OneDrive", "Documents", "Euro Truck Simulator 2"),
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			paths = append(paths, dir)
		}
	}
	return paths
}

// knownNames maps common Chinese station name parts to English equivalents.
var knownNames = []struct {
	cn, en string
}{
	{"中国之声", "China Voice"},
	{"经济之声", "Economy Voice"},
	{"音乐之声", "Music Voice"},
	{"都市之声", "City Voice"},
	{"中华之声", "Zhonghua Voice"},
	{"神州之声", "Shenzhou Voice"},
	{"华夏之声", "Huaxia Voice"},
	{"香港之声", "Hong Kong Voice"},
	{"民族之声", "Minzu Voice"},
	{"文艺之声", "Arts Voice"},
	{"老年之声", "Seniors Voice"},
	{"娱乐广播", "Entertainment Radio"},
	{"高速广播", "Highway Radio"},
	{"交通广播", "Traffic Radio"},
	{"新闻广播", "News Radio"},
	{"音乐广播", "Music Radio"},
	{"经济广播", "Economy Radio"},
	{"生活广播", "Life Radio"},
	{"文艺广播", "Arts Radio"},
	{"旅游广播", "Travel Radio"},
	{"农村广播", "Rural Radio"},
	{"体育广播", "Sports Radio"},
	{"私家车广播", "Car Radio"},
	{"故事广播", "Story Radio"},
}

// fillerWords are dropped from names before transliteration.
var fillerWords = []string{"广播电台", "人民广播", "电台", "频率", "频道"}

func stripFiller(name string) string {
	for _, w := range fillerWords {
		name = strings.ReplaceAll(name, w, "")
	}
	return strings.TrimSpace(name)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// EnglishName transliterates a station name to something the game can render.
// Known name parts map to English; an unmatched all-ASCII name passes
// through; anything else degrades to a generic label.
func EnglishName(name string) string {
	for _, m := range knownNames {
		if !strings.Contains(name, m.cn) {
			continue
		}
		prefix := stripFiller(strings.Replace(name, m.cn, "", 1))
		if prefix != "" && isASCII(prefix) {
			return prefix + " " + m.en
		}
		if prefix != "" {
			// Region prefix is still Chinese; keep just the mapped part.
			return m.en
		}
		return m.en
	}

	cleaned := stripFiller(name)
	if cleaned == "" {
		return "Radio CN"
	}
	if isASCII(cleaned) {
		return cleaned
	}
	return fmt.Sprintf("CN Radio %d", len(name)%100)
}

// Genre classifies a station by name keywords.
func Genre(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "新闻"), strings.Contains(lower, "之声"):
		return "news"
	case strings.Contains(lower, "音乐"), strings.Contains(lower, "music"):
		return "music"
	case strings.Contains(lower, "交通"), strings.Contains(lower, "高速"):
		return "traffic"
	case strings.Contains(lower, "经济"), strings.Contains(lower, "财经"):
		return "economy"
	case strings.Contains(lower, "文艺"), strings.Contains(lower, "故事"):
		return "culture"
	case strings.Contains(lower, "体育"):
		return "sports"
	case strings.Contains(lower, "娱乐"), strings.Contains(lower, "都市"):
		return "entertainment"
	default:
		return "general"
	}
}
