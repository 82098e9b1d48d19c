/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/friendsincode/skald_relay/internal/models"
)

func TestGenerateSiiFormat(t *testing.T) {
	gen := NewGenerator("127.0.0.1", 3000)
	content := gen.Generate([]models.Station{
		{ID: "100", Name: "中国之声"},
		{ID: "200", Name: "北京交通广播"},
	})

	if !strings.HasPrefix(content, "SiiNunit\n{") {
		t.Fatalf("missing SiiNunit header: %q", content[:40])
	}
	if !strings.Contains(content, "live_stream_def : .live_streams {") {
		t.Fatal("missing stream definition block")
	}
	if !strings.Contains(content, " stream_data: 2\n") {
		t.Fatal("missing stream count")
	}
	if !strings.Contains(content, `stream_data[0]: "http://127.0.0.1:3000/stream/100|China Voice|news|CN|128|0"`) {
		t.Fatalf("missing first entry:\n%s", content)
	}
	if !strings.Contains(content, "http://127.0.0.1:3000/stream/200|") {
		t.Fatal("missing second entry URL")
	}
	if !strings.HasSuffix(content, "}\n}\n") {
		t.Fatal("unbalanced braces")
	}
}

func TestGenerateEntriesAreASCII(t *testing.T) {
	gen := NewGenerator("127.0.0.1", 3000)
	content := gen.Generate([]models.Station{
		{ID: "1", Name: "中国之声"},
		{ID: "2", Name: "某不知名电台"},
	})

	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, "stream_data[") {
			continue
		}
		if !isASCII(line) {
			t.Fatalf("non-ASCII playlist entry: %q", line)
		}
	}
}

func TestEnglishName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"中国之声", "China Voice"},
		{"北京交通广播", "Traffic Radio"},
		{"音乐之声", "Music Voice"},
		{"CNR The Greater Bay Area", "CNR The Greater Bay Area"},
	}
	for _, c := range cases {
		if got := EnglishName(c.in); got != c.want {
			t.Errorf("EnglishName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := EnglishName("某不知名电台"); !isASCII(got) || got == "" {
		t.Errorf("fallback name must be non-empty ASCII, got %q", got)
	}
}

func TestGenre(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"中国之声", "news"},
		{"北京交通广播", "traffic"},
		{"经济之声", "news"}, // 之声 classifies as news before 经济
		{"上海财经广播", "economy"},
		{"体育广播", "sports"},
		{"某电台", "general"},
	}
	for _, c := range cases {
		if got := Genre(c.in); got != c.want {
			t.Errorf("Genre(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	gen := NewGenerator("127.0.0.1", 3000)
	target := filepath.Join(t.TempDir(), "nested", "dir", "live_streams.sii")

	if err := gen.WriteFile("SiiNunit\n{\n}\n", target); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "SiiNunit\n{\n}\n" {
		t.Fatalf("unexpected content %q", data)
	}
}
