package app

import (
	"context"
	"fmt"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/label"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
)

// Fetcher loads the full inventory.
type Fetcher interface {
	FetchAll(ctx context.Context) (*inventory.Index, error)
}

// Composer renders a label for a record.
type Composer interface {
	Compose(rec inventory.DeviceRecord, deepLinkURL string) (*label.Image, error)
}

// Submitter sends a label to the printer and disposes of it.
type Submitter interface {
	Submit(ctx context.Context, img *label.Image) error
}

// LinkFunc builds the console deep link for a record.
type LinkFunc func(rec inventory.DeviceRecord) (string, error)

// Service runs the lookup and print workflow.
type Service struct {
	fetcher   Fetcher
	composer  Composer
	submitter Submitter
	link      LinkFunc
	log       *logging.Logger
}

// NewService wires the workflow collaborators.
func NewService(f Fetcher, c Composer, s Submitter, link LinkFunc, log *logging.Logger) *Service {
	return &Service{fetcher: f, composer: c, submitter: s, link: link, log: log.With("app")}
}

// Load fetches the inventory once.
func (s *Service) Load(ctx context.Context) (*inventory.Index, error) {
	idx, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		s.log.Errorf("inventory load failed: %v", err)
		return nil, err
	}
	s.log.Infof("inventory loaded: %d devices", idx.Len())
	return idx, nil
}

// DeepLink returns the console URL for rec.
func (s *Service) DeepLink(rec inventory.DeviceRecord) (string, error) {
	return s.link(rec)
}

// Print composes and submits the label for id.
func (s *Service) Print(ctx context.Context, idx *inventory.Index, id string) error {
	if _, _, ok := inventory.ParseRecordID(id); !ok {
		return fmt.Errorf("invalid device id %q, want computer_<n> or mobile_<n>", id)
	}
	rec, err := idx.Lookup(id)
	if err != nil {
		return err
	}
	return s.PrintRecord(ctx, rec)
}

// PrintQuery resolves query to a single record and prints it.
func (s *Service) PrintQuery(ctx context.Context, idx *inventory.Index, query string) (inventory.DeviceRecord, error) {
	rec, err := idx.Resolve(query)
	if err != nil {
		return rec, err
	}
	return rec, s.PrintRecord(ctx, rec)
}

// PrintRecord composes and submits the label for rec.
func (s *Service) PrintRecord(ctx context.Context, rec inventory.DeviceRecord) error {
	link, err := s.link(rec)
	if err != nil {
		return fmt.Errorf("deep link for %s: %w", rec.ID, err)
	}
	img, err := s.composer.Compose(rec, link)
	if err != nil {
		return fmt.Errorf("compose label for %s: %w", rec.ID, err)
	}
	s.log.Debugf("label for %s written to %s", rec.ID, img.Path)
	return s.submitter.Submit(ctx, img)
}
