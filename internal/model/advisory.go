package model

// SecurityMetric is stored per advisory id; the latest alert for an advisory wins.
type SecurityMetric struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// SecurityAdvisoryEvent is the subset of a GitHub Dependabot alert webhook the relay reads.
type SecurityAdvisoryEvent struct {
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Alert struct {
		SecurityAdvisory struct {
			GHSAID      string `json:"ghsa_id"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
		} `json:"security_advisory"`
		Dependency struct {
			Package struct {
				Name string `json:"name"`
			} `json:"package"`
		} `json:"dependency"`
	} `json:"alert"`
}
