package inventory

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Source is a raw inventory row that knows how to become a DeviceRecord.
type Source interface {
	Normalize(n Normalizer) DeviceRecord
}

// Normalizer holds the settings shared by every Source.
type Normalizer struct {
	Ladder      Ladder
	PrimaryDisk string
}

// NewNormalizer builds a normalizer, defaulting the primary disk to disk0.
func NewNormalizer(ladder Ladder, primaryDisk string) Normalizer {
	if primaryDisk == "" {
		primaryDisk = "disk0"
	}
	return Normalizer{Ladder: ladder, PrimaryDisk: primaryDisk}
}

// Normalize maps any source row to the canonical record.
func (n Normalizer) Normalize(src Source) DeviceRecord {
	return src.Normalize(n)
}

// FlexID decodes identifiers the API sends either as strings or numbers.
type FlexID string

// UnmarshalJSON accepts "1042", 1042 and null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// ComputerSource is one row of the computers inventory.
type ComputerSource struct {
	ID       FlexID            `json:"id"`
	General  *ComputerGeneral  `json:"general"`
	Hardware *ComputerHardware `json:"hardware"`
	Storage  *ComputerStorage  `json:"storage"`
}

// ComputerGeneral is the GENERAL section of a computer.
type ComputerGeneral struct {
	Name             *string           `json:"name"`
	AssetTag         *string           `json:"assetTag"`
	RemoteManagement *RemoteManagement `json:"remoteManagement"`
}

// RemoteManagement carries the managed flag.
type RemoteManagement struct {
	Managed *bool `json:"managed"`
}

// ComputerHardware is the HARDWARE section of a computer.
type ComputerHardware struct {
	Model             *string `json:"model"`
	SerialNumber      *string `json:"serialNumber"`
	ProcessorType     *string `json:"processorType"`
	TotalRAMMegabytes *int64  `json:"totalRamMegabytes"`
}

// ComputerStorage is the STORAGE section of a computer.
type ComputerStorage struct {
	Disks []Disk `json:"disks"`
}

// Disk is one physical disk.
type Disk struct {
	Device        string `json:"device"`
	SizeMegabytes *int64 `json:"sizeMegabytes"`
}

// Normalize implements Source.
func (c ComputerSource) Normalize(n Normalizer) DeviceRecord {
	id := strings.TrimSpace(string(c.ID))
	rec := DeviceRecord{
		ID:        RecordID(ClassComputer, id),
		Class:     ClassComputer,
		NumericID: id,
		Managed:   ManagedNotReported,
	}
	if g := c.General; g != nil {
		rec.Name = str(g.Name)
		rec.AssetTag = str(g.AssetTag)
		if g.RemoteManagement != nil {
			rec.Managed = ManagedFrom(g.RemoteManagement.Managed)
		}
	}
	if h := c.Hardware; h != nil {
		rec.Model = str(h.Model)
		rec.SerialNumber = str(h.SerialNumber)
		rec.ProcessorType = str(h.ProcessorType)
		rec.RAM = n.Ladder.Bracket(h.TotalRAMMegabytes)
	}
	rec.Storage = n.Ladder.Bracket(c.primaryDiskSize(n.PrimaryDisk))
	return rec
}

func (c ComputerSource) primaryDiskSize(device string) *int64 {
	if c.Storage == nil {
		return nil
	}
	for _, d := range c.Storage.Disks {
		if d.Device == device {
			return d.SizeMegabytes
		}
	}
	return nil
}

// MobileSource is one row of the mobile device inventory.
type MobileSource struct {
	ID       FlexID          `json:"mobileDeviceId"`
	General  *MobileGeneral  `json:"general"`
	Hardware *MobileHardware `json:"hardware"`
}

// MobileGeneral is the GENERAL section of a mobile device.
type MobileGeneral struct {
	DisplayName *string `json:"displayName"`
	AssetTag    *string `json:"assetTag"`
}

// MobileHardware is the HARDWARE section of a mobile device.
type MobileHardware struct {
	Model        *string `json:"model"`
	SerialNumber *string `json:"serialNumber"`
	CapacityMB   *int64  `json:"capacityMb"`
}

// Normalize implements Source. Mobile devices report neither processor, RAM nor a managed flag.
func (m MobileSource) Normalize(n Normalizer) DeviceRecord {
	id := strings.TrimSpace(string(m.ID))
	rec := DeviceRecord{
		ID:        RecordID(ClassMobile, id),
		Class:     ClassMobile,
		NumericID: id,
		Managed:   ManagedNotReported,
	}
	if g := m.General; g != nil {
		rec.Name = str(g.DisplayName)
		rec.AssetTag = str(g.AssetTag)
	}
	if h := m.Hardware; h != nil {
		rec.Model = str(h.Model)
		rec.SerialNumber = str(h.SerialNumber)
		rec.Storage = n.Ladder.Bracket(h.CapacityMB)
	}
	return rec
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
