package models

import (
	"fmt"
	"time"
)

// ValidObservation is the value the observation pipeline stores in the
// validObservation column of a run that completed successfully.
const ValidObservation = "Yes"

// BothPolarizations is the polarization recorded for a signal that was
// confirmed in both the left and right circular polarizations.
const BothPolarizations = "both"

// Validity reports whether a stored observation was flagged valid.
type Validity bool

// ParseValidity maps the stored validObservation flag onto a Validity.
// Only the exact affirmative value counts as valid; anything else,
// including an empty or NULL column, is invalid.
func ParseValidity(flag string) Validity {
	return Validity(flag == ValidObservation)
}

// Valid reports whether the observation was flagged valid.
func (v Validity) Valid() bool { return bool(v) }

// Activity is one observation run recorded by the control system.
type Activity struct {
	ID       int64     `yaml:"id" json:"id"`
	Created  time.Time `yaml:"created" json:"created"`
	Validity Validity  `yaml:"valid" json:"valid"`
	Comments string    `yaml:"comments,omitempty" json:"comments,omitempty"`
}

// ActivityUnit is the record of one node's participation in an activity.
type ActivityUnit struct {
	NodeHostName          string    `yaml:"node" json:"node"`
	Validity              Validity  `yaml:"valid" json:"valid"`
	Comments              string    `yaml:"comments,omitempty" json:"comments,omitempty"`
	StartOfDataCollection time.Time `yaml:"start_of_data_collection" json:"start_of_data_collection"`
}

// CandidateSignal is one detected signal event attributed to a node.
type CandidateSignal struct {
	NodeNumber int `yaml:"dx_number" json:"dx_number"`

	// NodeUnknown is set when the row carried no node number.
	NodeUnknown bool    `yaml:"node_unknown,omitempty" json:"node_unknown,omitempty"`
	Type        string  `yaml:"type" json:"type"`
	Pol         string  `yaml:"pol" json:"pol"`
	RFFreqMHz   float64 `yaml:"rf_freq_mhz" json:"rf_freq_mhz"`
	Reason      string  `yaml:"reason" json:"reason"`
}

// UnknownNodeName names a signal whose row has no node number. It never
// matches a roster entry, so such rows surface as unexpected nodes.
const UnknownNodeName = "dxNone"

// NodeName returns the host name of the node that reported the signal,
// e.g. "dx1000" for node number 1000.
func (c CandidateSignal) NodeName() string {
	if c.NodeUnknown {
		return UnknownNodeName
	}
	return NodeName(c.NodeNumber)
}

// NodeName formats a dx node number as its host name.
func NodeName(number int) string {
	return fmt.Sprintf("dx%d", number)
}
