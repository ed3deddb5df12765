package dataset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bradyops/brady/pkg/util"
)

const (
	KindDataset = "Dataset"
)

// Dataset is an ordered list of test cases.
type Dataset struct {
	util.TypeMeta
	Metadata util.ObjectMeta `json:"metadata"`
	Cases    []TestCase      `json:"cases"`
}

// TestCase is one scripted conversation and the criteria its transcript is
// judged against.
type TestCase struct {
	ID       string `json:"id"`
	Input    Turns  `json:"input"`
	Criteria string `json:"criteria"`
}

// Turns are the user messages of a conversation. A single string decodes
// as one turn.
type Turns []string

func (t *Turns) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = Turns{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("input must be a string or a list of strings")
	}
	*t = many
	return nil
}

// Error reports a dataset that is missing, malformed or empty.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid dataset: %v", e.Err)
	}
	return fmt.Sprintf("invalid dataset '%s': %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validate checks that the dataset has cases and that every case can run.
func (d *Dataset) Validate() error {
	if len(d.Cases) == 0 {
		return errors.New("dataset has no test cases")
	}

	var err error
	seen := make(map[string]bool, len(d.Cases))
	for i, c := range d.Cases {
		if c.ID == "" {
			err = errors.Join(err, fmt.Errorf("case at index %d has no id", i))
		} else if seen[c.ID] {
			err = errors.Join(err, fmt.Errorf("duplicate case id '%s'", c.ID))
		}
		seen[c.ID] = true

		if len(c.Input) == 0 {
			err = errors.Join(err, fmt.Errorf("case '%s' has no input", c.ID))
		}
		for j, turn := range c.Input {
			if turn == "" {
				err = errors.Join(err, fmt.Errorf("case '%s' turn %d is empty", c.ID, j+1))
			}
		}
		if c.Criteria == "" {
			err = errors.Join(err, fmt.Errorf("case '%s' has no criteria", c.ID))
		}
	}

	return err
}
