package mdm

import (
	"fmt"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

// AuthError reports a failed client-credentials exchange.
type AuthError struct {
	Status string
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("mdm token request failed: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("mdm token request failed: %s: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("mdm token request failed: %s", e.Status)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// InventoryFetchError reports a failed inventory query. No partial inventory accompanies it.
type InventoryFetchError struct {
	Class  inventory.DeviceClass
	Status string
	Err    error
}

func (e *InventoryFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s inventory: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("fetch %s inventory: %s", e.Class, e.Status)
}

func (e *InventoryFetchError) Unwrap() error { return e.Err }
