package speech

import "fmt"

// PlaceholderValue is the value of the disabled "Choose voice" entry
const PlaceholderValue = "none"

// Option is one entry of the voice selection dropdown
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Lang     string `json:"lang,omitempty"`
	Name     string `json:"name,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// Options builds the dropdown entries for voices. Entries are keyed by voice
// ID so the selection maps back to exactly one voice.
func Options(voices []Voice, selectedID string) []Option {
	opts := make([]Option, 0, len(voices)+1)
	opts = append(opts, Option{
		Value:    PlaceholderValue,
		Label:    "Choose voice",
		Disabled: true,
		Selected: selectedID == "",
	})

	for _, v := range voices {
		label := fmt.Sprintf("%s (%s)", v.Name, v.Lang)
		if v.Default {
			label += " -- DEFAULT"
		}
		opts = append(opts, Option{
			Value:    v.ID,
			Label:    label,
			Lang:     v.Lang,
			Name:     v.Name,
			Selected: v.ID == selectedID,
		})
	}
	return opts
}
