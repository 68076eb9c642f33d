package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/grafana/eve-link-manager/pkg/resolver"
	"github.com/grafana/eve-link-manager/pkg/topology"
	"github.com/sirupsen/logrus/hooks/test"
)

func testSnapshot() *topology.Snapshot {
	return topology.NewFakeSnapshot("demo.unl",
		topology.Device{
			ID:   4,
			Name: "r4",
			Interfaces: []topology.Interface{
				{ID: 0, Name: "e0/0", NetworkID: 1},
				{ID: 1, Name: "e0/1", NetworkID: 2},
			},
		},
		topology.Device{
			ID:   7,
			Name: "r7",
			Interfaces: []topology.Interface{
				{ID: 0, Name: "e0/0", NetworkID: 1},
			},
		},
	)
}

func Test_Parse(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"# links to break",
		"",
		"r4,e0/0",
		"   # indented comment",
		" r7 , e0/0  # uplink to r4",
		"4,0,7,0",
		"r4",
		"r4,e0/0,extra",
		"4,0,r7,0",
		"r4,",
	}, "\n")

	directives, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("failed: %v", err)
	}

	expected := []Directive{
		{Line: 3, Text: "r4,e0/0", Refs: []Ref{{Device: "r4", Interface: "e0/0"}}},
		{Line: 5, Text: "r7 , e0/0  # uplink to r4", Refs: []Ref{{Device: "r7", Interface: "e0/0"}}},
		{Line: 6, Text: "4,0,7,0", Refs: []Ref{{Device: "4", Interface: "0"}, {Device: "7", Interface: "0"}}},
		{Line: 7, Text: "r4"},
		{Line: 8, Text: "r4,e0/0,extra"},
		{Line: 9, Text: "4,0,r7,0"},
		{Line: 10, Text: "r4,"},
	}

	if diff := cmp.Diff(expected, directives, cmpopts.IgnoreFields(Directive{}, "Err")); diff != "" {
		t.Errorf("directives do not match:\n%s", diff)
	}

	for _, d := range directives {
		malformed := d.Line >= 7
		if malformed != errors.Is(d.Err, ErrMalformedLine) {
			t.Errorf("line %d: unexpected error %v", d.Line, d.Err)
		}
	}
}

func Test_Run(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		title            string
		input            string
		options          Options
		failures         map[string]error
		expectedStatus   []Status
		expectedCalls    []string
		expectedTotal    int
		expectedOK       int
		expectedExecuted int
	}{
		{
			title:            "names, comment and unknown device id",
			input:            "r4,e0/0\n# skip\n99,3\n",
			options:          Options{Kind: linkops.Suspend},
			expectedStatus:   []Status{Succeeded, Unresolved},
			expectedCalls:    []string{"suspend 4,0"},
			expectedTotal:    2,
			expectedOK:       1,
			expectedExecuted: 1,
		},
		{
			title:            "malformed line does not halt the batch",
			input:            "r4\nr4,e0/1\n",
			options:          Options{Kind: linkops.Resume},
			expectedStatus:   []Status{Malformed, Succeeded},
			expectedCalls:    []string{"resume 4,1"},
			expectedTotal:    2,
			expectedOK:       1,
			expectedExecuted: 1,
		},
		{
			title:            "link by ids",
			input:            "4,0,7,0\n",
			options:          Options{Kind: linkops.Suspend},
			expectedStatus:   []Status{Succeeded},
			expectedCalls:    []string{"suspend 4,0", "suspend 7,0"},
			expectedTotal:    1,
			expectedOK:       1,
			expectedExecuted: 1,
		},
		{
			title:            "execution failure is isolated",
			input:            "r4,e0/0\nr7,e0/0\nr4,e0/1\n",
			options:          Options{Kind: linkops.Flap, Count: 1, Delay: time.Second},
			failures:         map[string]error{"resume 7,0": errors.New("wrapper exited 1")},
			expectedStatus:   []Status{Succeeded, Failed, Succeeded},
			expectedCalls:    []string{"suspend 4,0", "resume 4,0", "suspend 7,0", "resume 7,0", "suspend 4,1", "resume 4,1"},
			expectedTotal:    3,
			expectedOK:       2,
			expectedExecuted: 3,
		},
		{
			title:            "unknown interface on second endpoint",
			input:            "4,0,7,9\n",
			options:          Options{Kind: linkops.Suspend},
			expectedStatus:   []Status{Unresolved},
			expectedCalls:    []string{},
			expectedTotal:    1,
			expectedOK:       0,
			expectedExecuted: 0,
		},
		{
			title:            "invalid flap count fails every line",
			input:            "r4,e0/0\n",
			options:          Options{Kind: linkops.Flap, Count: 0},
			expectedStatus:   []Status{Failed},
			expectedCalls:    []string{},
			expectedTotal:    1,
			expectedOK:       0,
			expectedExecuted: 1,
		},
		{
			title:            "empty file",
			input:            "# nothing to do\n\n",
			options:          Options{Kind: linkops.Suspend},
			expectedStatus:   []Status{},
			expectedCalls:    []string{},
			expectedTotal:    0,
			expectedOK:       0,
			expectedExecuted: 0,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			log, _ := test.NewNullLogger()
			switcher := linkops.NewFakeSwitcher()
			for k, v := range tc.failures {
				switcher.Failures[k] = v
			}
			executor := linkops.NewExecutor(
				switcher,
				linkops.WithLogger(log),
				linkops.WithWait((&linkops.FakeWait{}).Wait),
			)

			runner := NewRunner(testSnapshot(), executor, log)
			report, err := runner.Run(context.Background(), strings.NewReader(tc.input), tc.options)
			if err != nil {
				t.Fatalf("failed: %v", err)
			}

			status := []Status{}
			for _, r := range report.Results {
				status = append(status, r.Status)
			}

			if diff := cmp.Diff(tc.expectedStatus, status); diff != "" {
				t.Errorf("line status do not match:\n%s", diff)
			}

			if diff := cmp.Diff(tc.expectedCalls, switcher.Calls()); diff != "" {
				t.Errorf("calls do not match:\n%s", diff)
			}

			if report.Total() != tc.expectedTotal {
				t.Errorf("expected total %d got %d", tc.expectedTotal, report.Total())
			}

			if report.Succeeded() != tc.expectedOK {
				t.Errorf("expected %d succeeded got %d", tc.expectedOK, report.Succeeded())
			}

			if report.Failed() != tc.expectedTotal-tc.expectedOK {
				t.Errorf("expected %d failed got %d", tc.expectedTotal-tc.expectedOK, report.Failed())
			}

			if report.Executed() != tc.expectedExecuted {
				t.Errorf("expected %d executed got %d", tc.expectedExecuted, report.Executed())
			}

			if (report.Failed() > 0) != (report.Err() != nil) {
				t.Errorf("report error %v does not match failures %d", report.Err(), report.Failed())
			}
		})
	}
}

func Test_RunReportsFailureCauses(t *testing.T) {
	t.Parallel()

	log, _ := test.NewNullLogger()
	executor := linkops.NewExecutor(linkops.NewFakeSwitcher(), linkops.WithLogger(log))
	runner := NewRunner(testSnapshot(), executor, log)

	report, err := runner.Run(
		context.Background(),
		strings.NewReader("r4,e0/0\n# skip\n99,3\nr9,e0/0\nr4,e5/5\nr4\n"),
		Options{Kind: linkops.Suspend},
	)
	if err != nil {
		t.Fatalf("failed: %v", err)
	}

	expected := []error{nil, resolver.ErrDeviceNotFound, resolver.ErrDeviceNotFound, resolver.ErrInterfaceNotFound, ErrMalformedLine}
	if len(report.Results) != len(expected) {
		t.Fatalf("expected %d results got %d", len(expected), len(report.Results))
	}

	for i, r := range report.Results {
		if expected[i] == nil {
			if r.Err != nil {
				t.Errorf("line %d: unexpected error %v", r.Line, r.Err)
			}
			continue
		}

		if !errors.Is(r.Err, expected[i]) {
			t.Errorf("line %d: expected %v got %v", r.Line, expected[i], r.Err)
		}

		if !strings.Contains(r.Err.Error(), "line ") {
			t.Errorf("line %d: error does not identify the line: %v", r.Line, r.Err)
		}
	}

	lines := []int{}
	for _, r := range report.Results {
		lines = append(lines, r.Line)
	}
	if diff := cmp.Diff([]int{1, 3, 4, 5, 6}, lines); diff != "" {
		t.Errorf("results are not in file order:\n%s", diff)
	}
}

func Test_RunFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "links.txt")
	if err := os.WriteFile(path, []byte("r4,e0/0\n4,1\n"), 0o600); err != nil {
		t.Fatalf("writing batch file: %v", err)
	}

	log, _ := test.NewNullLogger()
	switcher := linkops.NewFakeSwitcher()
	runner := NewRunner(testSnapshot(), linkops.NewExecutor(switcher, linkops.WithLogger(log)), log)

	report, err := runner.RunFile(context.Background(), path, Options{Kind: linkops.Suspend})
	if err != nil {
		t.Fatalf("failed: %v", err)
	}

	if report.Succeeded() != 2 {
		t.Errorf("expected 2 succeeded got %d", report.Succeeded())
	}

	_, err = runner.RunFile(context.Background(), filepath.Join(dir, "missing.txt"), Options{Kind: linkops.Suspend})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error got %v", err)
	}
}

// cancelingSwitcher cancels the batch after the first call
type cancelingSwitcher struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelingSwitcher) Suspend(_ context.Context, _ resolver.Handle) error {
	c.calls++
	c.cancel()
	return nil
}

func (c *cancelingSwitcher) Resume(_ context.Context, _ resolver.Handle) error {
	return c.Suspend(context.Background(), resolver.Handle{})
}

func Test_RunInterrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, _ := test.NewNullLogger()
	switcher := &cancelingSwitcher{cancel: cancel}
	runner := NewRunner(testSnapshot(), linkops.NewExecutor(switcher, linkops.WithLogger(log)), log)

	report, err := runner.Run(ctx, strings.NewReader("r4,e0/0\nr4,e0/1\nr7,e0/0\n"), Options{Kind: linkops.Suspend})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected %v got %v", context.Canceled, err)
	}

	if switcher.calls != 1 {
		t.Errorf("expected 1 call got %d", switcher.calls)
	}

	if report.Total() != 1 || report.Succeeded() != 1 {
		t.Errorf("expected only the first line to be processed, got %d results", report.Total())
	}
}

func Test_ParseLongLinesAndBOM(t *testing.T) {
	t.Parallel()

	input := "\ufeffr4,e0/0\n" + strings.Repeat("x", 70*1024) + "\nr7,e0/0"

	directives, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("failed: %v", err)
	}

	if len(directives) != 3 {
		t.Fatalf("expected 3 directives got %d", len(directives))
	}

	expectedRefs := [][]Ref{
		{{Device: "r4", Interface: "e0/0"}},
		nil,
		{{Device: "r7", Interface: "e0/0"}},
	}
	for i, d := range directives {
		if diff := cmp.Diff(expectedRefs[i], d.Refs); diff != "" {
			t.Errorf("line %d: references do not match:\n%s", d.Line, diff)
		}
	}

	if !errors.Is(directives[1].Err, ErrMalformedLine) || directives[1].Line != 2 {
		t.Errorf("expected line 2 to be malformed got line %d: %v", directives[1].Line, directives[1].Err)
	}

	if len(directives[1].Text) > 100 {
		t.Errorf("text of the long line should be truncated, got %d bytes", len(directives[1].Text))
	}
}

func Test_RunContinuesAfterLongLine(t *testing.T) {
	t.Parallel()

	log, _ := test.NewNullLogger()
	switcher := linkops.NewFakeSwitcher()
	runner := NewRunner(testSnapshot(), linkops.NewExecutor(switcher, linkops.WithLogger(log)), log)

	input := "r4,e0/0\n" + strings.Repeat("x", 70*1024) + "\nr7,e0/0\n"
	report, err := runner.Run(context.Background(), strings.NewReader(input), Options{Kind: linkops.Suspend})
	if err != nil {
		t.Fatalf("failed: %v", err)
	}

	if report.Total() != 3 || report.Succeeded() != 2 || report.Results[1].Status != Malformed {
		t.Errorf("expected 2 succeeded and line 2 malformed, got %d of %d", report.Succeeded(), report.Total())
	}

	if diff := cmp.Diff([]string{"suspend 4,0", "suspend 7,0"}, switcher.Calls()); diff != "" {
		t.Errorf("calls do not match:\n%s", diff)
	}
}
