/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/skald_relay/internal/telemetry"
)

// contentReferer is required by the content catalog's hotlink protection. The
// same value must be passed to the encoder when fetching resolved audio URLs.
const contentReferer = "https://www.bilibili.com/"

// ContentReferer exposes the referer for encoder spawns.
func ContentReferer() string { return contentReferer }

// ContentUserAgent exposes the browser user agent for encoder spawns.
func ContentUserAgent() string { return browserUserAgent }

func (c *HTTPClient) contentRequest(ctx context.Context, endpoint string, query url.Values, out any) error {
	start := time.Now()
	defer func() {
		telemetry.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	reqURL := c.contentBase + endpoint
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", contentReferer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("content catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read content catalog response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode content catalog response: %w", err)
	}
	if envelope.Code != 0 {
		if envelope.Code == -404 {
			return ErrItemNotFound
		}
		return fmt.Errorf("content catalog error %d: %s", envelope.Code, envelope.Message)
	}
	if envelope.Data == nil || string(envelope.Data) == "null" {
		return ErrItemNotFound
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode content catalog data: %w", err)
	}
	return nil
}

type searchResult struct {
	Result []struct {
		BVID   string `json:"bvid"`
		Title  string `json:"title"`
		Author string `json:"author"`
		Pic    string `json:"pic"`
	} `json:"result"`
}

// SearchItems returns one page of content items matching keyword. Only items
// of medium duration are requested so a virtual program entry stays within a
// plausible length.
func (c *HTTPClient) SearchItems(ctx context.Context, keyword string, page int) ([]Item, error) {
	query := url.Values{}
	query.Set("search_type", "video")
	query.Set("keyword", keyword)
	query.Set("page", strconv.Itoa(page))
	query.Set("duration", "4")

	var data searchResult
	if err := c.contentRequest(ctx, "/x/web-interface/search/type", query, &data); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(data.Result))
	for _, r := range data.Result {
		if r.BVID == "" {
			continue
		}
		items = append(items, Item{
			ID:     r.BVID,
			Title:  cleanTitle(r.Title),
			Author: r.Author,
			Image:  r.Pic,
		})
	}
	return items, nil
}

// cleanTitle strips the search API's keyword highlight markup.
func cleanTitle(title string) string {
	title = strings.ReplaceAll(title, `<em class="keyword">`, "")
	return strings.ReplaceAll(title, "</em>", "")
}

type viewResult struct {
	Title  string `json:"title"`
	Season *struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Sections []struct {
			Episodes []struct {
				BVID  string `json:"bvid"`
				Title string `json:"title"`
			} `json:"episodes"`
		} `json:"sections"`
	} `json:"ugc_season"`
}

// ResolveCollection returns the ordered series containing itemID, or
// (nil, nil) when the item is standalone. Section and episode order is the
// catalog's declared order and is preserved.
func (c *HTTPClient) ResolveCollection(ctx context.Context, itemID string) (*Collection, error) {
	query := url.Values{}
	query.Set("bvid", itemID)

	var data viewResult
	if err := c.contentRequest(ctx, "/x/web-interface/view", query, &data); err != nil {
		return nil, err
	}
	if data.Season == nil {
		return nil, nil
	}

	coll := &Collection{
		ID:    strconv.FormatInt(data.Season.ID, 10),
		Title: data.Season.Title,
	}
	for _, section := range data.Season.Sections {
		for _, ep := range section.Episodes {
			coll.Parts = append(coll.Parts, Item{ID: ep.BVID, Title: ep.Title})
		}
	}
	if len(coll.Parts) == 0 {
		return nil, nil
	}
	return coll, nil
}

type relatedResult []struct {
	BVID  string `json:"bvid"`
	Title string `json:"title"`
	Pic   string `json:"pic"`
	Owner struct {
		Name string `json:"name"`
	} `json:"owner"`
}

// RelatedItems returns the catalog's recommendations for itemID.
func (c *HTTPClient) RelatedItems(ctx context.Context, itemID string) ([]Item, error) {
	query := url.Values{}
	query.Set("bvid", itemID)

	var data relatedResult
	if err := c.contentRequest(ctx, "/x/web-interface/archive/related", query, &data); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(data))
	for _, r := range data {
		if r.BVID == "" {
			continue
		}
		items = append(items, Item{
			ID:     r.BVID,
			Title:  r.Title,
			Author: r.Owner.Name,
			Image:  r.Pic,
		})
	}
	return items, nil
}

type pageListResult []struct {
	CID int64 `json:"cid"`
}

type playURLResult struct {
	Dash *struct {
		Audio []struct {
			ID        int      `json:"id"`
			BaseURL   string   `json:"baseUrl"`
			BackupURL []string `json:"backupUrl"`
		} `json:"audio"`
	} `json:"dash"`
}

// ResolvePlayableURL turns an item into a concrete audio URL. The DASH
// manifest separates audio from video; the highest quality audio encoding
// wins, preferring its backup mirror which resolves faster in practice.
func (c *HTTPClient) ResolvePlayableURL(ctx context.Context, itemID string) (string, error) {
	pageQuery := url.Values{}
	pageQuery.Set("bvid", itemID)

	var pages pageListResult
	if err := c.contentRequest(ctx, "/x/player/pagelist", pageQuery, &pages); err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", ErrItemNotFound
	}
	cid := pages[0].CID

	playQuery := url.Values{}
	playQuery.Set("bvid", itemID)
	playQuery.Set("cid", strconv.FormatInt(cid, 10))
	playQuery.Set("fnval", "16") // DASH format, audio split from video
	playQuery.Set("fnver", "0")
	playQuery.Set("fourk", "1")

	var play playURLResult
	if err := c.contentRequest(ctx, "/x/player/playurl", playQuery, &play); err != nil {
		return "", err
	}
	if play.Dash == nil || len(play.Dash.Audio) == 0 {
		return "", ErrNoAudioStream
	}

	best := play.Dash.Audio[0]
	for _, a := range play.Dash.Audio[1:] {
		if a.ID > best.ID {
			best = a
		}
	}

	if len(best.BackupURL) > 0 && best.BackupURL[0] != "" {
		return best.BackupURL[0], nil
	}
	if best.BaseURL != "" {
		return best.BaseURL, nil
	}
	return "", ErrNoAudioStream
}
