package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DraftWindow bounds how many days after enrollment the first draft may
// land.
type DraftWindow struct {
	MinDays int `json:"draft_days_min"`
	MaxDays int `json:"draft_days_max"`
}

// RefData is the reference table set consulted by checks: state to
// servicing company assignments, per-affiliate draft windows, and
// numeric thresholds.
type RefData struct {
	StateCompany       map[string]string      `json:"state_company_mapping"`
	AffiliateOverrides map[string]DraftWindow `json:"affiliate_exceptions"`
	MinimumPayment     float64                `json:"minimum_payment"`
	MinimumAge         int                    `json:"minimum_age"`
	DefaultDraftWindow DraftWindow            `json:"default_draft_window"`
}

// DefaultRefData returns the built-in fallback tables used when no
// reference file is configured.
func DefaultRefData() *RefData {
	return &RefData{
		StateCompany: map[string]string{
			"CA": "Faye Caulin",
		},
		AffiliateOverrides: map[string]DraftWindow{
			"Credit Care": {MinDays: 2, MaxDays: 45},
		},
		MinimumPayment:     250,
		MinimumAge:         18,
		DefaultDraftWindow: DraftWindow{MinDays: 2, MaxDays: 30},
	}
}

// LoadRefData reads a JSON reference file over the defaults. Keys absent
// from the file keep their default values.
func LoadRefData(path string) (*RefData, error) {
	ref := DefaultRefData()
	if path == "" {
		return ref, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference data: %w", err)
	}
	if err := json.Unmarshal(data, ref); err != nil {
		return nil, fmt.Errorf("parsing reference data %s: %w", path, err)
	}
	if ref.MinimumPayment <= 0 {
		ref.MinimumPayment = 250
	}
	if ref.MinimumAge <= 0 {
		ref.MinimumAge = 18
	}
	if ref.DefaultDraftWindow.MaxDays <= 0 {
		ref.DefaultDraftWindow = DraftWindow{MinDays: 2, MaxDays: 30}
	}
	return ref, nil
}

// CompanyForState returns the expected servicing company for a state.
func (r *RefData) CompanyForState(state string) (string, bool) {
	c, ok := r.StateCompany[strings.ToUpper(strings.TrimSpace(state))]
	return c, ok
}

// DraftWindowFor returns the draft timing window for an affiliate,
// falling back to the default window.
func (r *RefData) DraftWindowFor(affiliate string) DraftWindow {
	if w, ok := r.AffiliateOverrides[affiliate]; ok {
		return w
	}
	return r.DefaultDraftWindow
}
