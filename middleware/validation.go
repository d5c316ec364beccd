package middleware

import (
	"context"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/validator"
)

// Validation parses the input with schema. On failure it returns a
// validation error carrying message and per-field issues. On success the
// parsed value replaces the raw input downstream.
func Validation(schema validator.Schema, message string) core.Stage {
	return func(next core.Action) core.Action {
		return func(ctx context.Context, input any, actx core.ActionContext) (any, error) {
			parsed, issues := schema.Parse(input)
			if len(issues) > 0 {
				fields := make([]core.FieldError, len(issues))
				for i, is := range issues {
					fields[i] = core.FieldError{Path: is.Path, Message: is.Message}
				}
				return nil, core.NewValidationError(message, fields)
			}
			return next(ctx, parsed, actx)
		}
	}
}
