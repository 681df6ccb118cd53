package inventory

import "strings"

// DeviceClass tags which inventory a record came from.
type DeviceClass string

const (
	// ClassComputer is a fixed asset (desktop or laptop).
	ClassComputer DeviceClass = "computer"
	// ClassMobile is a phone or tablet.
	ClassMobile DeviceClass = "mobile"
)

// Managed is the management state reported by the MDM.
type Managed int

const (
	// ManagedNotReported is used when the device class has no management flag.
	ManagedNotReported Managed = iota
	// ManagedYes means the device is enrolled and managed.
	ManagedYes
	// ManagedNo means the device reports as unmanaged.
	ManagedNo
)

// ManagedFrom converts an optional flag.
func ManagedFrom(v *bool) Managed {
	switch {
	case v == nil:
		return ManagedNotReported
	case *v:
		return ManagedYes
	default:
		return ManagedNo
	}
}

func (m Managed) String() string {
	switch m {
	case ManagedYes:
		return "true"
	case ManagedNo:
		return "false"
	default:
		return "N/A"
	}
}

// DeviceRecord is the canonical device shape shared by both device classes.
// Records are values; nothing in this package modifies one after Normalize returns it.
type DeviceRecord struct {
	ID            string
	Class         DeviceClass
	NumericID     string
	Name          string
	AssetTag      string
	Model         string
	SerialNumber  string
	Storage       string
	ProcessorType string
	RAM           string
	Managed       Managed
}

// RecordID builds the globally unique id for a class and backing identifier.
func RecordID(class DeviceClass, numericID string) string {
	return string(class) + "_" + numericID
}

// ParseRecordID splits an id built by RecordID.
func ParseRecordID(id string) (DeviceClass, string, bool) {
	class, num, ok := strings.Cut(id, "_")
	if !ok || num == "" {
		return "", "", false
	}
	switch DeviceClass(class) {
	case ClassComputer, ClassMobile:
		return DeviceClass(class), num, true
	}
	return "", "", false
}

// SpecLine joins the processor, RAM and storage parts that are known.
func (r DeviceRecord) SpecLine() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.ProcessorType, r.RAM, r.Storage} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}
