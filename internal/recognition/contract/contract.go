// Package contract holds reusable tests every recognition engine must pass.
package contract

import (
	"context"
	"strings"
	"testing"

	"mrzgate/internal/mrz"
	"mrzgate/internal/recognition"
)

// ContractTest defines a recognition case for engine contract validation
type ContractTest struct {
	Name         string
	Engine       recognition.Engine
	Input        recognition.Input
	ValidateFunc func(lines []string) error
}

// ContractSuite is a collection of contract tests for an engine
type ContractSuite struct {
	EngineName string
	Kind       recognition.Kind
	Tests      []ContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			if test.Engine.Name() != s.EngineName {
				t.Errorf("expected engine name %s, got %s", s.EngineName, test.Engine.Name())
			}
			if test.Engine.Kind() != s.Kind {
				t.Errorf("expected kind %s, got %s", s.Kind, test.Engine.Kind())
			}

			lines, err := test.Engine.Recognize(context.Background(), test.Input)
			if err != nil {
				t.Fatalf("recognize failed: %v", err)
			}

			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(lines); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

// LooksLikeTD3 checks that two of the lines normalize to 44 characters, the
// shape of a passport zone.
func LooksLikeTD3(lines []string) bool {
	n := 0
	for _, l := range mrz.NormalizeLines(lines) {
		if len(l) == mrz.LineLength {
			n++
		}
	}
	return n >= 2
}

// ErrorContractTest validates that engine errors follow the taxonomy
type ErrorContractTest struct {
	Name          string
	Engine        recognition.Engine
	Input         recognition.Input
	ExpectedError recognition.ErrorCategory
	ExpectedRetry bool
}

// Run executes an error contract test
func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Run(ect.Name, func(t *testing.T) {
		_, err := ect.Engine.Recognize(context.Background(), ect.Input)
		if err == nil {
			t.Fatal("expected error but got none")
		}

		category := recognition.GetCategory(err)
		if category != ect.ExpectedError {
			t.Errorf("expected error category %s, got %s", ect.ExpectedError, category)
		}

		if retry := recognition.IsRetryable(err); retry != ect.ExpectedRetry {
			t.Errorf("expected retryable=%v, got %v", ect.ExpectedRetry, retry)
		}

		if !strings.Contains(err.Error(), ect.Engine.Name()) {
			t.Errorf("expected error to name engine %s: %v", ect.Engine.Name(), err)
		}
	})
}
