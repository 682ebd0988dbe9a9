package domain

// CaseFailure represents a failed case as persisted for the failures viewer
type CaseFailure struct {
	CaseName       string  `json:"case_name"`
	DescriptorPath string  `json:"descriptor_path"`
	ExpectedPath   string  `json:"expected_path"`
	DiagnosticPath string  `json:"diagnostic_path,omitempty"`
	Kind           string  `json:"kind"`
	Reason         string  `json:"reason"`
	DurationSecs   float64 `json:"duration_seconds"`
	Resolved       bool    `json:"resolved,omitempty"` // Track if the failure is marked as resolved
}
