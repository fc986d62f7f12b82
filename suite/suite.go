package suite

import (
	"context"
	"sort"
	"sync"

	"github.com/wippyai/wasm-jsapi/jsapi"
	"github.com/wippyai/wasm-jsapi/jsval"
)

// Case is one conformance check. Group names the area it covers, for
// example "functions/module", and Name the scenario within it.
type Case struct {
	Group string
	Name  string
	Run   func(*Env) error
}

// ID returns Group/Name.
func (c Case) ID() string {
	return c.Group + "/" + c.Name
}

// Env is what a case runs against: a runtime of its own and that
// runtime's WebAssembly namespace.
type Env struct {
	Ctx context.Context
	RT  *jsapi.Runtime
	NS  *jsval.Object
}

// Skip returns the error a case returns to report itself as skipped.
func Skip(reason string) error {
	return &skipError{reason: reason}
}

type skipError struct {
	reason string
}

func (e *skipError) Error() string { return "skipped: " + e.reason }

var (
	registryMu sync.Mutex
	registry   []Case
)

// Register adds cases to the default set.
func Register(cases ...Case) {
	registryMu.Lock()
	registry = append(registry, cases...)
	registryMu.Unlock()
}

// Cases returns the registered cases ordered by group. Cases keep their
// registration order within a group.
func Cases() []Case {
	registryMu.Lock()
	out := append([]Case(nil), registry...)
	registryMu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// Groups returns the distinct group names in Cases order.
func Groups() []string {
	var groups []string
	seen := map[string]bool{}
	for _, c := range Cases() {
		if !seen[c.Group] {
			seen[c.Group] = true
			groups = append(groups, c.Group)
		}
	}
	return groups
}

func group(name string, cases ...Case) []Case {
	for i := range cases {
		cases[i].Group = name
	}
	return cases
}
