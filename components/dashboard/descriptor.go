package dashboard

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	descriptorVersionV1 = "1"
	// DescriptorVersion is the current descriptor format version.
	DescriptorVersion = descriptorVersionV1
)

// DashboardDescriptor is the YAML/JSON document defining a dashboard's widgets
// and where its telemetry comes from.
type DashboardDescriptor struct {
	Version         string         `json:"version" yaml:"version"`
	DashboardID     string         `json:"dashboardId" yaml:"dashboardId"`
	Title           string         `json:"title,omitempty" yaml:"title,omitempty"`
	Columns         int            `json:"columns,omitempty" yaml:"columns,omitempty"`
	DeviceID        string         `json:"deviceId,omitempty" yaml:"deviceId,omitempty"`
	HierarchyID     string         `json:"hierarchyId,omitempty" yaml:"hierarchyId,omitempty"`
	RefreshInterval time.Duration  `json:"refreshInterval,omitempty" yaml:"refreshInterval,omitempty"`
	Widgets         []WidgetConfig `json:"widgets" yaml:"widgets"`
	Source          string         `json:"-" yaml:"-"`
}

// ReadDescriptor loads a descriptor from disk.
func ReadDescriptor(path string) (*DashboardDescriptor, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open descriptor %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeDescriptor(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode descriptor %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeDescriptor reads a descriptor from any reader. JSON documents decode
// too since JSON is valid YAML.
func DecodeDescriptor(r io.Reader) (*DashboardDescriptor, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc DashboardDescriptor
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dashboard: descriptor is empty")
		}
		return nil, fmt.Errorf("dashboard: parse descriptor: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the version, layout id uniqueness and the JSON schema.
func (doc *DashboardDescriptor) Validate() error {
	if doc.Version != descriptorVersionV1 {
		return fmt.Errorf("%w: unsupported descriptor version %q", ErrValidation, doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Widgets))
	for idx, w := range doc.Widgets {
		if w.LayoutID == "" {
			return fmt.Errorf("%w: widget at index %d is missing layoutId", ErrValidation, idx)
		}
		if _, dup := seen[w.LayoutID]; dup {
			return fmt.Errorf("%w: descriptor duplicates layoutId %s", ErrValidation, w.LayoutID)
		}
		seen[w.LayoutID] = struct{}{}
	}
	return NewSchemaValidator().ValidateDescriptor(doc)
}

func (doc *DashboardDescriptor) applyDefaults() {
	if doc.Version == "" {
		doc.Version = descriptorVersionV1
	}
	if doc.Columns == 0 {
		doc.Columns = DefaultColumns
	}
}

// SessionOptions seeds session options from the descriptor. Collaborators
// still need to be set by the caller.
func (doc *DashboardDescriptor) SessionOptions() Options {
	return Options{
		DashboardID:     doc.DashboardID,
		Widgets:         append([]WidgetConfig(nil), doc.Widgets...),
		Columns:         doc.Columns,
		DeviceID:        doc.DeviceID,
		HierarchyID:     doc.HierarchyID,
		RefreshInterval: doc.RefreshInterval,
	}
}
