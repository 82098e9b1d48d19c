/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestSignKnownValues(t *testing.T) {
	got := sign(map[string]string{
		"provinceCode": "110000",
		"categoryId":   "0",
	}, 1700000000, "testkey")
	// md5("categoryId=0&provinceCode=110000&timestamp=1700000000&key=testkey")
	want := "EC02950740BF3FAE6ECB9B260A686BF0"
	if got != want {
		t.Fatalf("sign mismatch: got %s, want %s", got, want)
	}
}

func TestSignWithoutParams(t *testing.T) {
	got := sign(nil, 1700000000, "testkey")
	// md5("timestamp=1700000000&key=testkey")
	want := "AFD9B38561597F7B0687A6AD0D1F9B37"
	if got != want {
		t.Fatalf("sign mismatch: got %s, want %s", got, want)
	}
}

func TestFlexStringAcceptsBothForms(t *testing.T) {
	var regions []Region
	payload := `[
		{"provinceCode": 110000, "provinceName": "北京"},
		{"provinceCode": "120000", "provinceName": "天津"}
	]`
	if err := json.Unmarshal([]byte(payload), &regions); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if regions[0].Code != "110000" || regions[1].Code != "120000" {
		t.Fatalf("unexpected codes %q, %q", regions[0].Code, regions[1].Code)
	}
}

func TestRegionCodeFallsBackToNational(t *testing.T) {
	if got := RegionCode("北京"); got != "110000" {
		t.Fatalf("expected 110000 for 北京, got %s", got)
	}
	if got := RegionCode("不存在"); got != "0" {
		t.Fatalf("expected national fallback for unknown region, got %s", got)
	}
}

func TestRawStationPrefersHighQuality(t *testing.T) {
	raw := RawStation{
		ContentID:  "100",
		Title:      "Alpha",
		PlayURLLow: "http://up.example/low.m3u8",
		MP3URLLow:  "http://up.example/low.mp3",
		MP3URLHigh: "http://up.example/high.mp3",
	}
	if got := raw.bestURL(); got != "http://up.example/high.mp3" {
		t.Fatalf("expected high quality URL, got %s", got)
	}

	raw.MP3URLHigh = ""
	raw.MP3URLLow = ""
	if got := raw.bestURL(); got != "http://up.example/low.m3u8" {
		t.Fatalf("expected legacy fallback, got %s", got)
	}
}

// regionHandler serves canned station lists keyed by provinceCode.
func regionHandler(t *testing.T, byRegion map[string][]RawStation) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/web/appBroadcast/list" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("sign") == "" || r.Header.Get("timestamp") == "" {
			t.Error("request missing signature headers")
		}
		stations := byRegion[r.URL.Query().Get("provinceCode")]
		data, _ := json.Marshal(stations)
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": json.RawMessage(data),
		})
	})
}

func TestRefreshStreamURLFindsInRegion(t *testing.T) {
	srv := httptest.NewServer(regionHandler(t, map[string][]RawStation{
		"110000": {{ContentID: "100", Title: "Alpha", MP3URLHigh: "http://up.example/high.mp3"}},
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{RadioBaseURL: srv.URL, RadioKey: "k"}, zerolog.Nop())
	got, err := c.RefreshStreamURL(context.Background(), "100", "北京")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got != "http://up.example/high.mp3" {
		t.Fatalf("unexpected URL %s", got)
	}
}

func TestRefreshStreamURLProbesNational(t *testing.T) {
	srv := httptest.NewServer(regionHandler(t, map[string][]RawStation{
		"110000": {{ContentID: "999", Title: "Other"}},
		"0":      {{ContentID: "100", Title: "Alpha", MP3URLLow: "http://up.example/low.mp3"}},
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{RadioBaseURL: srv.URL, RadioKey: "k"}, zerolog.Nop())
	got, err := c.RefreshStreamURL(context.Background(), "100", "北京")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got != "http://up.example/low.mp3" {
		t.Fatalf("expected national probe to find the station, got %q", got)
	}
}

func TestRefreshStreamURLMissIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(regionHandler(t, nil))
	defer srv.Close()

	c := NewHTTPClient(Options{RadioBaseURL: srv.URL, RadioKey: "k"}, zerolog.Nop())
	got, err := c.RefreshStreamURL(context.Background(), "nope", "北京")
	if err != nil {
		t.Fatalf("expected miss to return no error, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty URL on miss, got %q", got)
	}
}

func TestRadioRequestSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 500, "message": "server busy"})
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{RadioBaseURL: srv.URL, RadioKey: "k"}, zerolog.Nop())
	if _, err := c.Regions(context.Background()); err == nil {
		t.Fatal("expected error from non-zero API code")
	}
}
