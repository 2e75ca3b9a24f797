package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Scenario is one handler behaviour: a router in a known state, one request
// against it and the checks on the response.
type Scenario struct {
	Given   string
	When    string
	Then    string
	Router  func(t *testing.T) http.Handler
	Request func(t *testing.T) *http.Request
	Check   func(t *testing.T, rec *httptest.ResponseRecorder)
}

// Name reads as the sentence the scenario describes. Empty clauses are left
// out.
func (s Scenario) Name() string {
	var parts []string
	for _, clause := range [][2]string{{"given", s.Given}, {"when", s.When}, {"then", s.Then}} {
		if clause[1] != "" {
			parts = append(parts, clause[0]+" "+clause[1])
		}
	}
	return strings.Join(parts, ", ")
}

// RunScenarios runs each scenario as a subtest against a fresh router.
func RunScenarios(t *testing.T, scenarios ...Scenario) {
	t.Helper()
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.Name(), func(t *testing.T) {
			if sc.Router == nil || sc.Request == nil || sc.Check == nil {
				t.Fatalf("scenario %q needs a router, a request and a check", sc.Name())
			}
			sc.Check(t, DoRequest(sc.Router(t), sc.Request(t)))
		})
	}
}
