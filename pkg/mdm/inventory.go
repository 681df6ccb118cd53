package mdm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

const (
	computersPath = "/api/v1/computers-inventory"
	mobilesPath   = "/api/v2/mobile-devices/detail"
)

var (
	computerSections = []string{"GENERAL", "HARDWARE", "STORAGE"}
	mobileSections   = []string{"GENERAL", "HARDWARE"}
)

type page[T any] struct {
	TotalCount int `json:"totalCount"`
	Results    []T `json:"results"`
}

// FetchAll pulls both inventories and returns them normalized and indexed,
// computers first then mobile devices. Any failed query fails the whole fetch.
func (c *Client) FetchAll(ctx context.Context) (*inventory.Index, error) {
	computers, err := fetchPages[inventory.ComputerSource](ctx, c, inventory.ClassComputer, computersPath, computerSections)
	if err != nil {
		return nil, err
	}
	mobiles, err := fetchPages[inventory.MobileSource](ctx, c, inventory.ClassMobile, mobilesPath, mobileSections)
	if err != nil {
		return nil, err
	}

	records := make([]inventory.DeviceRecord, 0, len(computers)+len(mobiles))
	seen := make(map[string]bool, len(computers)+len(mobiles))
	records = appendNormalized(c, records, seen, computers)
	records = appendNormalized(c, records, seen, mobiles)

	idx, err := inventory.NewIndex(records)
	if err != nil {
		return nil, &InventoryFetchError{Class: inventory.ClassComputer, Err: err}
	}
	c.log.Infof("loaded %d computers and %d mobile devices", len(computers), len(mobiles))
	return idx, nil
}

// appendNormalized skips rows without an id and rows whose id was already seen;
// a row can reappear when the inventory shifts between pages.
func appendNormalized[T inventory.Source](c *Client, records []inventory.DeviceRecord, seen map[string]bool, rows []T) []inventory.DeviceRecord {
	for _, row := range rows {
		rec := c.normalizer.Normalize(row)
		if rec.NumericID == "" {
			c.log.Warnf("skipping %s row without id", rec.Class)
			continue
		}
		if seen[rec.ID] {
			c.log.Warnf("skipping duplicate %s row %s", rec.Class, rec.ID)
			continue
		}
		seen[rec.ID] = true
		records = append(records, rec)
	}
	return records
}

func fetchPages[T inventory.Source](ctx context.Context, c *Client, class inventory.DeviceClass, path string, sections []string) ([]T, error) {
	var out []T
	for pageNum := 0; ; pageNum++ {
		q := url.Values{}
		for _, s := range sections {
			q.Add("section", s)
		}
		q.Set("page", strconv.Itoa(pageNum))
		q.Set("page-size", strconv.Itoa(c.pageSize))

		resp, err := c.get(ctx, path, q)
		if err != nil {
			return nil, &InventoryFetchError{Class: class, Err: err}
		}
		if !statusOK(resp.StatusCode) {
			drain(resp)
			return nil, &InventoryFetchError{Class: class, Status: resp.Status}
		}
		var p page[T]
		err = json.NewDecoder(resp.Body).Decode(&p)
		resp.Body.Close()
		if err != nil {
			return nil, &InventoryFetchError{Class: class, Status: resp.Status, Err: fmt.Errorf("decode page %d: %w", pageNum, err)}
		}
		out = append(out, p.Results...)
		c.log.Debugf("%s page %d: %d rows (%d/%d)", class, pageNum, len(p.Results), len(out), p.TotalCount)
		if lastPage(p.TotalCount, len(p.Results), len(out), c.pageSize) {
			return out, nil
		}
	}
}

// lastPage trusts totalCount only when the server reports one; otherwise a short page ends the listing.
func lastPage(total, got, fetched, pageSize int) bool {
	if got == 0 {
		return true
	}
	if total > 0 {
		return fetched >= total
	}
	return got < pageSize
}

func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
