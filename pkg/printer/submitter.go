package printer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/label"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
)

// DefaultTimeout bounds a single print submission.
const DefaultTimeout = 5 * time.Second

// PrinterError reports a failed print submission.
type PrinterError struct {
	Status string
	Err    error
}

func (e *PrinterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("print failed: %v", e.Err)
	}
	return fmt.Sprintf("print failed: %s", e.Status)
}

func (e *PrinterError) Unwrap() error { return e.Err }

// Checker reports whether the printer can accept a job.
type Checker interface {
	Check(ctx context.Context) error
}

// Submitter uploads composed labels to the network print endpoint.
type Submitter struct {
	url        string
	token      string
	httpClient *http.Client
	checker    Checker
	log        *logging.Logger
}

// SubmitterOption configures the submitter.
type SubmitterOption func(*Submitter)

// WithChecker runs a readiness check before every upload.
func WithChecker(c Checker) SubmitterOption {
	return func(s *Submitter) {
		s.checker = c
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) SubmitterOption {
	return func(s *Submitter) {
		s.log = log.With("printer")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) SubmitterOption {
	return func(s *Submitter) {
		s.httpClient = hc
	}
}

// NewSubmitter builds a submitter for the configured endpoint.
func NewSubmitter(cfg config.PrinterConfig, opts ...SubmitterOption) *Submitter {
	timeout, err := cfg.TimeoutDuration()
	if err != nil || timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Submitter{
		url:        strings.TrimSpace(cfg.URL),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit makes one attempt to print img. The label's temp file is removed on every path.
func (s *Submitter) Submit(ctx context.Context, img *label.Image) error {
	defer func() {
		if cerr := img.Cleanup(); cerr != nil {
			s.log.Warnf("remove label file %s: %v", img.Path, cerr)
		}
	}()
	if img == nil || img.Path == "" {
		return &PrinterError{Err: fmt.Errorf("no label to print")}
	}
	if s.url == "" {
		return &PrinterError{Err: fmt.Errorf("printer url not configured")}
	}
	if s.checker != nil {
		if err := s.checker.Check(ctx); err != nil {
			return &PrinterError{Err: err}
		}
	}

	body, contentType, err := multipartBody(img.Path)
	if err != nil {
		return &PrinterError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return &PrinterError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &PrinterError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		status := resp.Status
		if m := strings.TrimSpace(string(msg)); m != "" {
			status += ": " + m
		}
		return &PrinterError{Status: status}
	}
	s.log.Infof("printed label for %s", img.DeviceID)
	return nil
}

func multipartBody(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open label: %w", err)
	}
	defer f.Close()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(path)))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read label: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}
