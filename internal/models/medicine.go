package models

// Placeholder values the backend uses when it has nothing to say for a field.
// Fields equal to these are suppressed from display rather than shown.
const (
	PlaceholderNA          = "N/A"
	PlaceholderUnavailable = "Information not available"
)

// MedicineInfo is the canonical, display-ready shape of a backend medicine
// answer. It is owned by the Message that carries it and never mutated after
// normalization.
type MedicineInfo struct {
	Name         string   `json:"name,omitempty"`
	GenericName  string   `json:"generic_name,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Description  string   `json:"description,omitempty"`
	Uses         string   `json:"uses,omitempty"`
	SideEffects  []string `json:"side_effects,omitempty"`
	Warnings     string   `json:"warnings,omitempty"`
	Disclaimer   string   `json:"disclaimer,omitempty"`
}

// HasName reports whether normalization produced a usable record.
// An absent name signals a normalization failure.
func (m *MedicineInfo) HasName() bool {
	return m != nil && m.Name != ""
}

// DisplayGenericName returns the generic name, or "" when suppressed
func (m *MedicineInfo) DisplayGenericName() string {
	if m.GenericName == PlaceholderNA {
		return ""
	}
	return m.GenericName
}

// DisplayManufacturer returns the manufacturer, or "" when suppressed
func (m *MedicineInfo) DisplayManufacturer() string {
	if m.Manufacturer == PlaceholderNA {
		return ""
	}
	return m.Manufacturer
}

// DisplayUses returns the uses text, or "" when suppressed
func (m *MedicineInfo) DisplayUses() string {
	if m.Uses == PlaceholderNA || m.Uses == PlaceholderUnavailable {
		return ""
	}
	return m.Uses
}

// DisplaySideEffects returns the side effect list, or nil when suppressed
func (m *MedicineInfo) DisplaySideEffects() []string {
	if len(m.SideEffects) == 0 {
		return nil
	}
	if m.SideEffects[0] == PlaceholderUnavailable {
		return nil
	}
	return m.SideEffects
}
