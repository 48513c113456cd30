package middleware

import (
	"context"
	"errors"
)

// OperatorFromContext returns the operator name Authenticate stored on the
// request context.
func OperatorFromContext(ctx context.Context) (string, error) {
	name, ok := ctx.Value(operatorContextKey).(string)
	if !ok || name == "" {
		return "", errors.New("operator not found in context")
	}
	return name, nil
}
