package app

import (
	"errors"
	"fmt"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/mdm"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/printer"
)

// StatusMessage renders err as a single status line.
func StatusMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		authErr  *mdm.AuthError
		fetchErr *mdm.InventoryFetchError
		ambErr   *inventory.AmbiguousError
		nfErr    *inventory.NotFoundError
		prErr    *printer.PrinterError
	)
	switch {
	case errors.As(err, &authErr):
		if authErr.Status != "" {
			return fmt.Sprintf("MDM sign-in failed (%s); check the client id and secret", authErr.Status)
		}
		return fmt.Sprintf("MDM sign-in failed: %v", authErr.Err)
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Inventory unavailable: could not load %s devices", fetchErr.Class)
	case errors.As(err, &ambErr):
		return fmt.Sprintf("%q matches %d devices; refine the search", ambErr.Query, len(ambErr.Matches))
	case errors.As(err, &nfErr):
		return fmt.Sprintf("No device matches %q", nfErr.Query)
	case errors.As(err, &prErr):
		if prErr.Status != "" {
			return fmt.Sprintf("Print failed: printer answered %s", prErr.Status)
		}
		return fmt.Sprintf("Print failed: %v", prErr.Err)
	default:
		return err.Error()
	}
}
