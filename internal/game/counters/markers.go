package counters

import "strconv"

// Markers tracks the +X/+X style power and toughness markers placed on a
// battlefield card. Values may go negative.
type Markers struct {
	PowerMarker     int `json:"powerMarker" yaml:"powerMarker"`
	ToughnessMarker int `json:"toughnessMarker" yaml:"toughnessMarker"`
}

// Adjust adds the given deltas to both markers.
func (m *Markers) Adjust(power, toughness int) {
	m.PowerMarker += power
	m.ToughnessMarker += toughness
}

// Clear resets both markers to zero.
func (m *Markers) Clear() {
	m.PowerMarker = 0
	m.ToughnessMarker = 0
}

// IsZero reports whether no marker is set.
func (m Markers) IsZero() bool {
	return m.PowerMarker == 0 && m.ToughnessMarker == 0
}

// Label renders the markers the way they are printed on a counter, e.g. "+1/-2".
func (m Markers) Label() string {
	return formatBoost(m.PowerMarker) + "/" + formatBoost(m.ToughnessMarker)
}

func formatBoost(value int) string {
	switch {
	case value > 0:
		return "+" + strconv.Itoa(value)
	case value < 0:
		return strconv.Itoa(value)
	}
	return "±0"
}
