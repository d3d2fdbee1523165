package types

// DomainRef is the domain record a hit was correlated with
type DomainRef struct {
	Key        uint   `json:"key"`         // Surrogate key in the domain store
	DomainID   string `json:"domain_id"`   // Canonical domain identifier
	FamilyID   string `json:"family_id"`   // Family the domain is classified in
	FamilyName string `json:"family_name"` // Human readable family name
}

// Alignment holds the raw aligned strings of a sequence hit
type Alignment struct {
	Query   string `json:"query"`
	Subject string `json:"subject"`
	Midline string `json:"midline"`
}

// Hit is one candidate match reported by a search tool. Hits are derived
// from the raw tool output on every read and never stored on their own.
type Hit struct {
	Ordinal     int        `json:"ordinal"`
	Target      string     `json:"target"`          // Tool-native target identifier
	Range       string     `json:"range,omitempty"` // Positional range from the target definition line
	Key         *uint      `json:"key,omitempty"`   // Surrogate key embedded in the target id
	Domain      *DomainRef `json:"domain,omitempty"`
	EValue      float64    `json:"evalue"`
	BitScore    float64    `json:"bit_score"`
	Identity    float64    `json:"identity"` // Percent identity
	Identical   int        `json:"identical,omitempty"`
	AlignLength int        `json:"align_length"`
	Mismatches  int        `json:"mismatches,omitempty"`
	GapOpens    int        `json:"gap_opens,omitempty"`
	Gaps        int        `json:"gaps,omitempty"`
	QueryStart  int        `json:"query_start"`
	QueryEnd    int        `json:"query_end"`
	TargetStart int        `json:"target_start"`
	TargetEnd   int        `json:"target_end"`
	TMScore     *float64   `json:"tm_score,omitempty"`
	Alignment   *Alignment `json:"alignment,omitempty"`
}
