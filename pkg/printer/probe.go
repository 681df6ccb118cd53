package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
)

// Host Resources MIB objects for the first device on the agent.
const (
	oidSysDescr        = ".1.3.6.1.2.1.1.1.0"
	oidHrDeviceStatus  = ".1.3.6.1.2.1.25.3.2.1.5.1"
	oidHrPrinterStatus = ".1.3.6.1.2.1.25.3.5.1.1.1"
)

// DeviceStatus mirrors hrDeviceStatus.
type DeviceStatus int

// hrDeviceStatus values.
const (
	DeviceUnknown DeviceStatus = 1
	DeviceRunning DeviceStatus = 2
	DeviceWarning DeviceStatus = 3
	DeviceTesting DeviceStatus = 4
	DeviceDown    DeviceStatus = 5
)

func (d DeviceStatus) String() string {
	switch d {
	case DeviceRunning:
		return "running"
	case DeviceWarning:
		return "warning"
	case DeviceTesting:
		return "testing"
	case DeviceDown:
		return "down"
	default:
		return "unknown"
	}
}

// Status is what the printer's SNMP agent reported.
type Status struct {
	Description   string
	Device        DeviceStatus
	PrinterStatus int
}

type snmpClient interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

type goSNMPClient struct {
	*gosnmp.GoSNMP
}

func (c goSNMPClient) Close() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}

// Probe queries the printer over SNMP before a job is sent.
type Probe struct {
	dial func(ctx context.Context) (snmpClient, error)
	log  *logging.Logger
}

// NewProbe builds a probe for the configured agent.
func NewProbe(cfg config.SNMPConfig, log *logging.Logger) *Probe {
	port := cfg.Port
	if port == 0 {
		port = 161
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Probe{
		log: log.With("snmp"),
		dial: func(ctx context.Context) (snmpClient, error) {
			snmp := &gosnmp.GoSNMP{
				Context:   ctx,
				Target:    cfg.Host,
				Port:      uint16(port),
				Community: cfg.Community,
				Version:   gosnmp.Version2c,
				Timeout:   timeout,
				Retries:   1,
			}
			if err := snmp.Connect(); err != nil {
				return nil, err
			}
			return goSNMPClient{snmp}, nil
		},
	}
}

// Status reads the device and printer status objects.
func (p *Probe) Status(ctx context.Context) (Status, error) {
	client, err := p.dial(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("snmp connect: %w", err)
	}
	defer client.Close()

	result, err := client.Get([]string{oidSysDescr, oidHrDeviceStatus, oidHrPrinterStatus})
	if err != nil {
		return Status{}, fmt.Errorf("snmp get: %w", err)
	}
	st := Status{Device: DeviceUnknown}
	for _, variable := range result.Variables {
		switch variable.Name {
		case oidSysDescr:
			if desc, ok := variable.Value.([]byte); ok {
				st.Description = string(desc)
			}
		case oidHrDeviceStatus:
			if variable.Type == gosnmp.Integer {
				st.Device = DeviceStatus(gosnmp.ToBigInt(variable.Value).Int64())
			}
		case oidHrPrinterStatus:
			if variable.Type == gosnmp.Integer {
				st.PrinterStatus = int(gosnmp.ToBigInt(variable.Value).Int64())
			}
		}
	}
	return st, nil
}

// Check implements Checker. Only a printer that reports itself down blocks the job;
// an unreachable agent is logged and ignored.
func (p *Probe) Check(ctx context.Context) error {
	st, err := p.Status(ctx)
	if err != nil {
		p.log.Warnf("printer status unavailable: %v", err)
		return nil
	}
	p.log.Debugf("printer %q status %s (printer status %d)", st.Description, st.Device, st.PrinterStatus)
	if st.Device == DeviceDown {
		return fmt.Errorf("printer reports status %s", st.Device)
	}
	return nil
}
