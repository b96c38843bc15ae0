package roster

import (
	"context"

	"github.com/ComputerScienceHouse/packet/pkg/errors"
)

type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte) (Result, error)
	Validate(ctx context.Context, res Result) error
}

// DelimitedStrategy handles the comma separated .csv and .txt exports.
type DelimitedStrategy struct {
	parser *Parser
}

func NewDelimitedStrategy() ParsingStrategy {
	return &DelimitedStrategy{
		parser: NewParser(),
	}
}

func (s *DelimitedStrategy) Parse(ctx context.Context, data []byte) (Result, error) {
	return s.parser.Parse(ctx, data)
}

// Validate only rejects a roster with no records. Field contents are passed
// through untouched; the packet server owns their meaning.
func (s *DelimitedStrategy) Validate(ctx context.Context, res Result) error {
	if res.Empty() {
		return errors.ErrEmptyRoster
	}
	return nil
}
