// Package catalog provides the ordered stage list a game is played over.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Source lists persisted stages.
type Source interface {
	ListStages(ctx context.Context) ([]model.Stage, error)
}

var builtin = []model.StageInput{
	{
		Order:       1,
		Title:       "Stage 1: Format Code Correctly",
		Description: "Fix the indentation and formatting of this JavaScript code",
		Type:        model.StageCodeFormat,
		Challenge:   `function hello(){console.log("Hello");return true;}`,
		Solution:    "function hello() {\n  console.log(\"Hello\");\n  return true;\n}",
		Hint:        "Add proper line breaks and indentation (2 spaces)",
	},
	{
		Order:       2,
		Title:       "Stage 2: Click Image to Debug Code",
		Description: "Debug the code below to fix the error",
		Type:        model.StageDebug,
		Challenge:   "const sum = (a, b) => { return a - b; }",
		Solution:    "const sum = (a, b) => { return a + b; }",
		Hint:        "The function should add, not subtract",
	},
	{
		Order:       3,
		Title:       "Stage 3: Generate Numbers",
		Description: "Write code to generate all numbers from 0 to 1000",
		Type:        model.StageGenerateNumbers,
		Challenge:   "",
		Solution:    "for (let i = 0; i <= 1000; i++) {\n  console.log(i);\n}",
		Hint:        "Use a for loop from 0 to 1000",
	},
	{
		Order:       4,
		Title:       "Stage 4: Data Transformation",
		Description: "Convert CSV data to JSON format",
		Type:        model.StageDataTransform,
		Challenge:   "name,age,city\nJohn,25,NYC\nJane,30,LA",
		Solution:    `[{"name":"John","age":"25","city":"NYC"},{"name":"Jane","age":"30","city":"LA"}]`,
		Hint:        "Parse CSV and create an array of objects",
	},
}

// BuiltinInputs returns the built-in stage definitions, e.g. for seeding.
func BuiltinInputs() []model.StageInput {
	out := make([]model.StageInput, len(builtin))
	copy(out, builtin)
	return out
}

// Fallback returns the built-in stages with ids matching their order.
func Fallback() []model.Stage {
	stages := make([]model.Stage, len(builtin))
	for i, in := range builtin {
		stages[i] = FromInput(int64(in.Order), in)
	}
	return stages
}

// FromInput builds a stage from its definition.
func FromInput(id int64, in model.StageInput) model.Stage {
	return model.Stage{
		ID:          id,
		Order:       in.Order,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Challenge:   in.Challenge,
		Solution:    in.Solution,
		Hint:        in.Hint,
	}
}

// Load returns the persisted stages ordered by Order. When src is nil, fails,
// or holds no stages, the built-in list is returned instead with fallback set;
// err carries the failure, if any, for logging.
func Load(ctx context.Context, src Source) (stages []model.Stage, fallback bool, err error) {
	if src == nil {
		return Fallback(), true, nil
	}
	stages, err = src.ListStages(ctx)
	if err != nil {
		return Fallback(), true, fmt.Errorf("failed to list stages: %w", err)
	}
	if len(stages) == 0 {
		return Fallback(), true, nil
	}
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Order < stages[j].Order
	})
	return stages, false, nil
}

// Validate checks a set of stage definitions: titles and descriptions are
// required, types must be known and orders positive and unique.
func Validate(inputs []model.StageInput) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no stages", model.ErrInvalidInput)
	}
	seen := map[int]bool{}
	var errs []error
	for i, in := range inputs {
		if err := ValidateInput(in); err != nil {
			errs = append(errs, fmt.Errorf("stage %d: %w", i+1, err))
			continue
		}
		if seen[in.Order] {
			errs = append(errs, fmt.Errorf("stage %d: %w: duplicate order %d", i+1, model.ErrInvalidInput, in.Order))
		}
		seen[in.Order] = true
	}
	return errors.Join(errs...)
}

// ValidateInput checks a single stage definition.
func ValidateInput(in model.StageInput) error {
	if in.Order <= 0 {
		return fmt.Errorf("%w: order must be positive", model.ErrInvalidInput)
	}
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	if in.Description == "" {
		return fmt.Errorf("%w: description is required", model.ErrInvalidInput)
	}
	if _, err := model.ParseStageType(string(in.Type)); err != nil {
		return err
	}
	return nil
}
