package search

import (
	"context"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// SearchExecutor finds every non-overlapping occurrence of the pattern in
// the payload text, with one character of context on each side.
type SearchExecutor struct{}

func (SearchExecutor) Execute(ctx context.Context, payload protocol.Payload, result *protocol.Result) error {
	if payload.Pattern == "" {
		return toygrep.ErrEmptyPattern
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result.Matches = toygrep.Find(payload.Text, payload.Pattern, payload.Limit)
	return nil
}

func (SearchExecutor) Description() string {
	return "Substring search returning each match with its surrounding characters and offset"
}
