package mdm

import (
	"fmt"
	"net/url"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

// DeepLink builds the console URL for a record, e.g.
// https://mdm.example.com/computers.html?id=1042&o=r. The link is always https.
func DeepLink(baseURL string, rec inventory.DeviceRecord) (string, error) {
	u, err := url.Parse(sanitizeBaseURL(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse mdm base url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("mdm base url %q has no host", baseURL)
	}
	var page string
	switch rec.Class {
	case inventory.ClassComputer:
		page = "computers.html"
	case inventory.ClassMobile:
		page = "mobileDevices.html"
	default:
		return "", fmt.Errorf("unknown device class %q", rec.Class)
	}
	return fmt.Sprintf("https://%s/%s?id=%s&o=r", u.Host, page, url.QueryEscape(rec.NumericID)), nil
}

// DeepLink builds the console URL using the client's base URL.
func (c *Client) DeepLink(rec inventory.DeviceRecord) (string, error) {
	return DeepLink(c.baseURL, rec)
}
