package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/thisisjab/docquery/entity"
	"github.com/thisisjab/docquery/fault"
)

const (
	VerdictLimitMin = 1
	VerdictLimitMax = 1000
)

// History reads back recorded verdicts.
type History interface {
	ListVerdicts(ctx context.Context, filter VerdictFilter) ([]entity.Verdict, error)
}

// VerdictFilter defines which recorded verdicts to list and in what order.
type VerdictFilter struct {
	// Start is the inclusive beginning of the time range and is required.
	Start time.Time
	// End is the inclusive end of the time range. If End is before Start,
	// verdicts are listed newest first.
	End time.Time

	Result *bool
	Source string

	// Sort fields are applied in order, evaluated_at always comes last.
	Sort  []SortField
	Limit int
}

type SortField struct {
	Name         string
	IsDescending bool
}

func (f VerdictFilter) Validate() error {
	fields := fault.FieldErrorsMetadata{}

	if f.Limit > VerdictLimitMax {
		fields["limit"] = append(fields["limit"], fmt.Sprintf("Values larger than %d are not supported.", VerdictLimitMax))
	}

	if f.Limit < VerdictLimitMin {
		fields["limit"] = append(fields["limit"], fmt.Sprintf("Values smaller than %d are not supported.", VerdictLimitMin))
	}

	if f.Start.IsZero() {
		fields["start"] = append(fields["start"], "Field is required.")
	}

	for _, s := range f.Sort {
		if !slices.Contains(verdictSortFields, s.Name) {
			fields["sort"] = append(fields["sort"], fmt.Sprintf("Field `%s` is not allowed for sorting.", s.Name))
		}
	}

	if len(fields) > 0 {
		return fault.New(fault.BadInputCode, "Filter is invalid.").WithMetadata(fields)
	}

	return nil
}

var verdictSortFields = []string{"source", "result", "lookups", "duration_ns", "evaluated_at"}

// buildVerdictQuery builds a parameterized SELECT over the verdicts table.
// Column names never come from the filter unless whitelisted.
func buildVerdictQuery(f VerdictFilter) (string, []any, error) {
	if err := f.Validate(); err != nil {
		return "", nil, err
	}

	sTime, eTime := f.Start, f.End
	backward := !f.End.IsZero() && f.End.Before(f.Start)
	if backward {
		sTime, eTime = f.End, f.Start
	}

	// Always add time bounds
	where := []string{"evaluated_at >= ?"}
	args := []any{sTime}

	if !eTime.IsZero() {
		where = append(where, "evaluated_at <= ?")
		args = append(args, eTime)
	}

	if f.Result != nil {
		where = append(where, "result = ?")
		args = append(args, *f.Result)
	}

	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}

	timeDirection := "ASC"
	if backward {
		timeDirection = "DESC"
	}

	var order []string
	for _, s := range f.Sort {
		if s.Name == "evaluated_at" {
			continue
		}

		direction := "ASC"
		if s.IsDescending {
			direction = "DESC"
		}
		order = append(order, fmt.Sprintf("%s %s", s.Name, direction))
	}
	order = append(order, "evaluated_at "+timeDirection)

	query := fmt.Sprintf(
		"SELECT %s FROM verdicts WHERE %s ORDER BY %s LIMIT %d",
		verdictColumns,
		strings.Join(where, " AND "),
		strings.Join(order, ", "),
		f.Limit,
	)

	return query, args, nil
}

const verdictColumns = "id, query, source, result, lookups, duration_ns, evaluated_at"
