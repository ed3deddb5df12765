package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bradyops/brady/pkg/util"
)

func TestRead(t *testing.T) {
	tt := map[string]struct {
		data      string
		wantName  string
		wantCases []TestCase
		wantErr   string
	}{
		"bare json list": {
			data: `[
  {"id": "track-1", "input": "Where is ORD-123?", "criteria": "Gives the delivery date."},
  {"id": "multi-1", "input": ["Hi", "Check ORD-999"], "criteria": "Apologizes."}
]`,
			wantName: "fallback",
			wantCases: []TestCase{
				{ID: "track-1", Input: Turns{"Where is ORD-123?"}, Criteria: "Gives the delivery date."},
				{ID: "multi-1", Input: Turns{"Hi", "Check ORD-999"}, Criteria: "Apologizes."},
			},
		},
		"bare yaml list": {
			data: `
- id: track-1
  input: Where is ORD-123?
  criteria: Gives the delivery date.
`,
			wantName: "fallback",
			wantCases: []TestCase{
				{ID: "track-1", Input: Turns{"Where is ORD-123?"}, Criteria: "Gives the delivery date."},
			},
		},
		"typed yaml document": {
			data: `
kind: Dataset
apiVersion: brady/v1alpha1
metadata:
  name: order-status
cases:
  - id: pending-1
    input:
      - Hello
      - Where is ORD-456?
    criteria: Says the order is pending.
`,
			wantName: "order-status",
			wantCases: []TestCase{
				{ID: "pending-1", Input: Turns{"Hello", "Where is ORD-456?"}, Criteria: "Says the order is pending."},
			},
		},
		"typed document without name": {
			data: `
kind: Dataset
cases:
  - id: a
    input: hi
    criteria: greets
`,
			wantName:  "fallback",
			wantCases: []TestCase{{ID: "a", Input: Turns{"hi"}, Criteria: "greets"}},
		},
		"wrong kind": {
			data:    "kind: Eval\nmetadata:\n  name: x\n",
			wantErr: "cannot decode kind 'Eval' as kind 'Dataset'",
		},
		"unknown api version": {
			data:    "kind: Dataset\napiVersion: brady/v9\ncases:\n  - id: a\n    input: hi\n    criteria: c\n",
			wantErr: "unknown apiVersion",
		},
		"empty list": {
			data:    "[]",
			wantErr: "no test cases",
		},
		"empty document": {
			data:    "",
			wantErr: "no test cases",
		},
		"input of wrong type": {
			data:    `[{"id": "a", "input": 42, "criteria": "c"}]`,
			wantErr: "input must be a string or a list of strings",
		},
		"missing fields": {
			data:    `[{"id": "a", "input": []}, {"input": "hi", "criteria": "c"}]`,
			wantErr: "case 'a' has no input",
		},
		"duplicate ids": {
			data:    `[{"id": "a", "input": "x", "criteria": "c"}, {"id": "a", "input": "y", "criteria": "c"}]`,
			wantErr: "duplicate case id 'a'",
		},
		"empty turn": {
			data:    `[{"id": "a", "input": ["hi", ""], "criteria": "c"}]`,
			wantErr: "case 'a' turn 2 is empty",
		},
		"malformed yaml": {
			data:    "cases: [unterminated",
			wantErr: "failed to parse dataset",
		},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			ds, err := Read([]byte(tc.data), "fallback")
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantName, ds.Metadata.Name)
			assert.Equal(t, KindDataset, ds.Kind)
			assert.Equal(t, util.APIVersionV1Alpha1, ds.APIVersion)
			assert.Equal(t, tc.wantCases, ds.Cases)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	ds := &Dataset{Cases: []TestCase{
		{Input: Turns{"hi"}, Criteria: "c"},
		{ID: "b"},
	}}

	err := ds.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case at index 0 has no id")
	assert.Contains(t, err.Error(), "case 'b' has no input")
	assert.Contains(t, err.Error(), "case 'b' has no criteria")
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("name defaults to file name", func(t *testing.T) {
		path := filepath.Join(dir, "smoke-cases.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id": "a", "input": "hi", "criteria": "c"}]`), 0o644))

		ds, err := FromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "smoke-cases", ds.Metadata.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FromFile(filepath.Join(dir, "nope.json"))

		var dsErr *Error
		require.ErrorAs(t, err, &dsErr)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid contents", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

		_, err := FromFile(path)

		var dsErr *Error
		require.ErrorAs(t, err, &dsErr)
		assert.Equal(t, path, dsErr.Path)
	})
}
