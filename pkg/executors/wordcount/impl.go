package wordcount

import (
	"context"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// WordCountExecutor counts the lowercased words in the payload text
type WordCountExecutor struct{}

func (WordCountExecutor) Execute(ctx context.Context, payload protocol.Payload, result *protocol.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result.Counts = toygrep.CountWords(payload.Text)
	return nil
}

func (WordCountExecutor) Description() string {
	return "Counts occurrences of each word in the slice"
}
