// Package report renders conformance results for CI consumers: SARIF
// 2.1.0, JUnit-style XML and a human summary.
package report

import (
	"encoding/json"
	"sort"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/violation"
)

// SARIF 2.1.0 document shapes, limited to the fields emitted.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string        `json:"id"`
	ShortDescription *sarifMessage `json:"shortDescription,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Fixes               []sarifFix        `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

// sarifLevel maps violation severity to the SARIF level vocabulary.
func sarifLevel(s contract.Severity) string {
	switch s {
	case contract.SeverityError:
		return "error"
	case contract.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// SARIF renders violations as a SARIF 2.1.0 log. The violation's
// tracking identity rides along as a partial fingerprint so SARIF
// consumers can correlate findings across runs the same way the store
// does.
func SARIF(violations []*violation.Violation) ([]byte, error) {
	ruleSet := make(map[string]bool)
	var rules []sarifRule
	results := make([]sarifResult, 0, len(violations))

	for _, v := range violations {
		if !ruleSet[v.CheckID] {
			ruleSet[v.CheckID] = true
			rules = append(rules, sarifRule{ID: v.CheckID})
		}
		res := sarifResult{
			RuleID:  v.CheckID,
			Level:   sarifLevel(v.Severity),
			Message: sarifMessage{Text: v.Message},
			PartialFingerprints: map[string]string{
				"conformance/v1": v.ID,
			},
		}
		if v.File != "" {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: v.File},
				},
			}
			if v.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: v.Line}
			}
			res.Locations = []sarifLocation{loc}
		}
		if v.FixHint != "" {
			res.Fixes = []sarifFix{{Description: sarifMessage{Text: v.FixHint}}}
		}
		results = append(results, res)
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "conform", Rules: rules}},
			Results: results,
		}},
	}
	return json.MarshalIndent(log, "", "  ")
}
