package roster

import (
	"context"
	"strings"

	"github.com/ComputerScienceHouse/packet/internal/model"
)

// Field positions in a roster line. Field 2 is not used.
const (
	fieldName     = 0
	fieldOnfloor  = 1
	fieldUsername = 3
)

// Result is the outcome of parsing one roster file. Line indices are zero based.
type Result struct {
	Records []model.PersonRecord
	// Skipped holds lines with at most one field, blank lines included.
	Skipped []int
	// Short holds data lines that produced a record but had no username field.
	Short []int
}

// Usernames returns the rit_username of every record in file order.
func (r Result) Usernames() []string {
	usernames := make([]string, len(r.Records))
	for i, rec := range r.Records {
		usernames[i] = rec.RitUsername
	}
	return usernames
}

func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// Parse splits text into lines and lines into comma separated fields. Quoting is
// not interpreted; a comma inside a name splits it like any other comma.
func Parse(text string) Result {
	var res Result
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		cells := strings.Split(line, ",")
		if len(cells) <= 1 {
			res.Skipped = append(res.Skipped, i)
			continue
		}

		rec := model.PersonRecord{
			Name:    cells[fieldName],
			Onfloor: cells[fieldOnfloor],
		}
		if len(cells) > fieldUsername {
			rec.RitUsername = cells[fieldUsername]
		} else {
			res.Short = append(res.Short, i)
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, data []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Parse(string(data)), nil
}
