package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the assetlabel configuration file.
type Config struct {
	MDM       MDMConfig       `json:"mdm" yaml:"mdm"`
	Inventory InventoryConfig `json:"inventory" yaml:"inventory"`
	Label     LabelConfig     `json:"label" yaml:"label"`
	Printer   PrinterConfig   `json:"printer" yaml:"printer"`
	Reminder  ReminderConfig  `json:"reminder" yaml:"reminder"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// MDMConfig stores device-management API information.
type MDMConfig struct {
	BaseURL      string `json:"base_url" yaml:"base_url"`
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
	PageSize     int    `json:"page_size" yaml:"page_size"`
	Timeout      string `json:"timeout" yaml:"timeout"`
}

// InventoryConfig controls normalization.
type InventoryConfig struct {
	// Ladder selects the capacity bracket table: "standard" or "extended".
	Ladder      string `json:"ladder" yaml:"ladder"`
	PrimaryDisk string `json:"primary_disk" yaml:"primary_disk"`
}

// LabelConfig describes the label template and layout.
type LabelConfig struct {
	AssetsDir    string `json:"assets_dir" yaml:"assets_dir"`
	TempDir      string `json:"temp_dir" yaml:"temp_dir"`
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
	QRX          int    `json:"qr_x" yaml:"qr_x"`
	QRY          int    `json:"qr_y" yaml:"qr_y"`
	QRSize       int    `json:"qr_size" yaml:"qr_size"`
	TextX        int    `json:"text_x" yaml:"text_x"`
	TextY        int    `json:"text_y" yaml:"text_y"`
	LineSpacing  int    `json:"line_spacing" yaml:"line_spacing"`
	MaxTextWidth int    `json:"max_text_width" yaml:"max_text_width"`
	BaseFontSize int    `json:"base_font_size" yaml:"base_font_size"`
	MinFontSize  int    `json:"min_font_size" yaml:"min_font_size"`
}

// PrinterConfig describes the network label printer.
type PrinterConfig struct {
	URL     string     `json:"url" yaml:"url"`
	Token   string     `json:"token" yaml:"token"`
	Timeout string     `json:"timeout" yaml:"timeout"`
	SNMP    SNMPConfig `json:"snmp" yaml:"snmp"`
}

// SNMPConfig enables the printer readiness probe.
type SNMPConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	Community string `json:"community" yaml:"community"`
	TimeoutMS int    `json:"timeout_ms" yaml:"timeout_ms"`
}

// ReminderConfig configures the roll-marking reminder.
type ReminderConfig struct {
	Interface     string   `json:"interface" yaml:"interface"`
	StaffSubnets  []string `json:"staff_subnets" yaml:"staff_subnets"`
	Times         []string `json:"times" yaml:"times"`
	Title         string   `json:"title" yaml:"title"`
	Message       string   `json:"message" yaml:"message"`
	NotifyCommand []string `json:"notify_command" yaml:"notify_command"`
	Debug         bool     `json:"debug" yaml:"debug"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	Path  string `json:"path" yaml:"path"`
}

// Load reads YAML/JSON configuration, overlays environment secrets and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

// Parse decodes JSON, falling back to YAML.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err == nil {
		return cfg, nil
	}
	cfg = &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.MDM.BaseURL = strings.TrimRight(strings.TrimSpace(c.MDM.BaseURL), "/")
	if c.MDM.PageSize <= 0 {
		c.MDM.PageSize = 100
	}
	if c.MDM.Timeout == "" {
		c.MDM.Timeout = "30s"
	}
	if c.Inventory.Ladder == "" {
		c.Inventory.Ladder = "extended"
	}
	if c.Inventory.PrimaryDisk == "" {
		c.Inventory.PrimaryDisk = "disk0"
	}
	c.Label.applyDefaults()
	if c.Printer.Timeout == "" {
		c.Printer.Timeout = "5s"
	}
	if c.Printer.SNMP.Port == 0 {
		c.Printer.SNMP.Port = 161
	}
	if c.Printer.SNMP.Community == "" {
		c.Printer.SNMP.Community = "public"
	}
	if c.Printer.SNMP.TimeoutMS == 0 {
		c.Printer.SNMP.TimeoutMS = 1000
	}
	if c.Reminder.Interface == "" {
		c.Reminder.Interface = "en0"
	}
	if len(c.Reminder.StaffSubnets) == 0 {
		c.Reminder.StaffSubnets = []string{"10.10.4.0/22"}
	}
	if len(c.Reminder.Times) == 0 {
		c.Reminder.Times = []string{"11:20", "15:30"}
	}
	if c.Reminder.Title == "" {
		c.Reminder.Title = "Roll Marking Reminder"
	}
	if c.Reminder.Message == "" {
		c.Reminder.Message = "Have you marked your roll?\nHave you updated students who arrived late?"
	}
}

func (l *LabelConfig) applyDefaults() {
	if l.Width == 0 {
		l.Width = 696
	}
	if l.Height == 0 {
		l.Height = 271
	}
	if l.QRSize == 0 {
		l.QRSize = 231
	}
	if l.QRX == 0 {
		l.QRX = 20
	}
	if l.QRY == 0 {
		l.QRY = 20
	}
	if l.TextX == 0 {
		l.TextX = 270
	}
	if l.TextY == 0 {
		l.TextY = 30
	}
	if l.LineSpacing == 0 {
		l.LineSpacing = 8
	}
	if l.MaxTextWidth == 0 {
		l.MaxTextWidth = 400
	}
	if l.BaseFontSize == 0 {
		l.BaseFontSize = 32
	}
	if l.MinFontSize == 0 {
		l.MinFontSize = 10
	}
}

// Validate reports settings required by the lookup and print workflow.
func (c *Config) Validate() error {
	if c.MDM.BaseURL == "" {
		return fmt.Errorf("mdm base_url not configured")
	}
	if c.MDM.ClientID == "" || c.MDM.ClientSecret == "" {
		return fmt.Errorf("mdm client credentials missing")
	}
	if _, err := c.MDM.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Printer.TimeoutDuration(); err != nil {
		return err
	}
	switch c.Inventory.Ladder {
	case "standard", "extended":
	default:
		return fmt.Errorf("unknown inventory ladder %q", c.Inventory.Ladder)
	}
	if c.Printer.SNMP.Enabled && (c.Printer.SNMP.Port < 1 || c.Printer.SNMP.Port > 65535) {
		return fmt.Errorf("printer snmp port %d out of range 1-65535", c.Printer.SNMP.Port)
	}
	if c.Label.MinFontSize > c.Label.BaseFontSize {
		return fmt.Errorf("label min_font_size %d exceeds base_font_size %d", c.Label.MinFontSize, c.Label.BaseFontSize)
	}
	return nil
}

// TimeoutDuration parses the MDM request timeout.
func (m MDMConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(m.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid mdm timeout %q: %w", m.Timeout, err)
	}
	return d, nil
}

// TimeoutDuration parses the print submission timeout.
func (p PrinterConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid printer timeout %q: %w", p.Timeout, err)
	}
	return d, nil
}
