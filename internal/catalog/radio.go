/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/models"
	"github.com/friendsincode/skald_relay/internal/telemetry"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPClient is the production Client implementation.
type HTTPClient struct {
	radioBase   string
	radioKey    string
	contentBase string
	http        *http.Client
	logger      zerolog.Logger
}

// Options configures the HTTP catalog client.
type Options struct {
	RadioBaseURL   string
	RadioKey       string
	ContentBaseURL string
	Timeout        time.Duration
}

// NewHTTPClient builds the production catalog client.
func NewHTTPClient(opts Options, logger zerolog.Logger) *HTTPClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		radioBase:   strings.TrimSuffix(opts.RadioBaseURL, "/"),
		radioKey:    opts.RadioKey,
		contentBase: strings.TrimSuffix(opts.ContentBaseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "catalog").Logger(),
	}
}

var _ Client = (*HTTPClient)(nil)

// apiEnvelope is the radio catalog's response wrapper.
type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Region is one partition of the radio catalog.
type Region struct {
	Code flexString `json:"provinceCode"`
	Name string     `json:"provinceName"`
}

// flexString tolerates the catalog serving codes as either numbers or strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// RawStation is a station record as the radio catalog serves it.
type RawStation struct {
	ContentID  string `json:"contentId"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Image      string `json:"image"`
	PlayURLLow string `json:"playUrlLow"`
	MP3URLLow  string `json:"mp3PlayUrlLow"`
	MP3URLHigh string `json:"mp3PlayUrlHigh"`
}

// Station converts the raw record, tagging it with its region name.
func (r RawStation) Station(region string) models.Station {
	return models.Station{
		ID:        r.ContentID,
		Name:      r.Title,
		Subtitle:  r.Subtitle,
		Image:     r.Image,
		Region:    region,
		StreamLow: r.PlayURLLow,
		MP3Low:    r.MP3URLLow,
		MP3High:   r.MP3URLHigh,
	}
}

func (r RawStation) bestURL() string {
	for _, u := range []string{r.MP3URLHigh, r.MP3URLLow, r.PlayURLLow} {
		if u != "" {
			return u
		}
	}
	return ""
}

// sign computes the radio catalog request signature: parameters sorted by key,
// joined as key=value pairs, with timestamp and API key appended, MD5 hashed
// and upper-cased.
func sign(params map[string]string, timestamp int64, key string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	signText := fmt.Sprintf("timestamp=%d&key=%s", timestamp, key)
	if len(pairs) > 0 {
		signText = strings.Join(pairs, "&") + "&" + signText
	}

	return fmt.Sprintf("%X", md5.Sum([]byte(signText)))
}

func (c *HTTPClient) radioRequest(ctx context.Context, endpoint string, params map[string]string, out any) error {
	start := time.Now()
	defer func() {
		telemetry.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	timestamp := time.Now().UnixMilli()

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	reqURL := c.radioBase + endpoint
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("equipmentId", "0000")
	req.Header.Set("platformCode", "WEB")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("sign", sign(params, timestamp, c.radioKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("radio catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read radio catalog response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode radio catalog response: %w", err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("radio catalog error %d: %s", envelope.Code, envelope.Message)
	}
	if envelope.Data == nil {
		return fmt.Errorf("radio catalog returned empty data")
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode radio catalog data: %w", err)
	}
	return nil
}

// Regions lists all radio catalog partitions.
func (c *HTTPClient) Regions(ctx context.Context) ([]Region, error) {
	var regions []Region
	if err := c.radioRequest(ctx, "/web/appProvince/list/all", nil, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// RegionStations lists raw station records for one region code. Code "0" is
// the national partition.
func (c *HTTPClient) RegionStations(ctx context.Context, regionCode string) ([]RawStation, error) {
	params := map[string]string{
		"provinceCode": regionCode,
		"categoryId":   "0",
	}
	var stations []RawStation
	if err := c.radioRequest(ctx, "/web/appBroadcast/list", params, &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// RefreshStreamURL re-queries the station's region partition for a current
// stream URL, probing the national partition once when the region misses.
// The catalog has no per-id endpoint, so this is a group-scoped linear scan.
func (c *HTTPClient) RefreshStreamURL(ctx context.Context, stationID, region string) (string, error) {
	code := RegionCode(region)

	stations, err := c.RegionStations(ctx, code)
	if err != nil {
		return "", err
	}
	if u := findStationURL(stations, stationID); u != "" {
		return u, nil
	}

	if code != "0" {
		national, err := c.RegionStations(ctx, "0")
		if err != nil {
			return "", err
		}
		if u := findStationURL(national, stationID); u != "" {
			return u, nil
		}
	}

	return "", nil
}

func findStationURL(stations []RawStation, stationID string) string {
	for _, s := range stations {
		if s.ContentID == stationID {
			return s.bestURL()
		}
	}
	return ""
}

// regionCodes maps region display names to radio catalog partition codes.
// "0" is the national partition and the fallback for unknown names.
var regionCodes = map[string]string{
	"央广":   "0",
	"国家":   "0",
	"安徽":   "340000",
	"北京":   "110000",
	"重庆":   "500000",
	"福建":   "350000",
	"甘肃":   "620000",
	"广东":   "440000",
	"广西":   "450000",
	"贵州":   "520000",
	"海南":   "460000",
	"河北":   "130000",
	"河南":   "410000",
	"黑龙江":  "230000",
	"湖北":   "420000",
	"湖南":   "430000",
	"吉林":   "220000",
	"江苏":   "320000",
	"江西":   "360000",
	"辽宁":   "210000",
	"内蒙古":  "150000",
	"宁夏":   "640000",
	"青海":   "630000",
	"山东":   "370000",
	"山西":   "140000",
	"陕西":   "610000",
	"上海":   "310000",
	"四川":   "510000",
	"西藏":   "540000",
	"新疆":   "650000",
	"新疆兵团": "660000",
	"云南":   "530000",
	"浙江":   "330000",
}

// RegionCode resolves a region display name to its partition code.
func RegionCode(region string) string {
	if code, ok := regionCodes[region]; ok {
		return code
	}
	return "0"
}
