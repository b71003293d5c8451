package report

import (
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/codeconform/conform/internal/violation"
)

type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

// JUnit renders violations as JUnit-style XML, one testsuite per
// contract. Case names follow the {check_id}@{file}:{line} convention
// so a CI viewer pinpoints the location without opening the report.
func JUnit(violations []*violation.Violation) ([]byte, error) {
	byContract := make(map[string][]*violation.Violation)
	for _, v := range violations {
		byContract[v.ContractID] = append(byContract[v.ContractID], v)
	}

	var names []string
	for name := range byContract {
		names = append(names, name)
	}
	sort.Strings(names)

	var suites []junitTestSuite
	for _, name := range names {
		vs := byContract[name]
		suite := junitTestSuite{Name: name, Tests: len(vs), Failures: len(vs)}
		for _, v := range vs {
			suite.Cases = append(suite.Cases, junitTestCase{
				Name:      fmt.Sprintf("%s@%s:%d", v.CheckID, v.File, v.Line),
				ClassName: name,
				Failure: &junitFailure{
					Message: v.Message,
					Text:    fmt.Sprintf("severity=%s fix_hint=%s", v.Severity, v.FixHint),
				},
			})
		}
		suites = append(suites, suite)
	}

	out, err := xml.MarshalIndent(junitTestSuites{Suites: suites}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
