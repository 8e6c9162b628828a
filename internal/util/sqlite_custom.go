package util

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"
	"sync"

	"modernc.org/sqlite"
)

// ListSeparator joins values inside a single sortconcat column. It cannot
// appear in author names typed by people.
const ListSeparator = "\x1f"

// SortedConcatenate is an aggregate that joins values ordered by an integer
// position, e.g. sortconcat(position, name).
type SortedConcatenate struct {
	ans map[int]string
	sep string
}

func NewSortedConcatenate(sep string) *SortedConcatenate {
	return &SortedConcatenate{ans: make(map[int]string), sep: sep}
}

func (sc *SortedConcatenate) Step(ctx *sqlite.FunctionContext, rowArgs []driver.Value) error {
	if rowArgs[0] == nil || rowArgs[1] == nil {
		return nil
	}
	ndx := 0
	switch v := rowArgs[0].(type) {
	case int64:
		ndx = int(v)
	default:
		return fmt.Errorf("invalid type: %T", rowArgs[0])
	}
	value := ""
	switch v := rowArgs[1].(type) {
	case string:
		value = v
	case []byte:
		value = string(v)
	default:
		return fmt.Errorf("invalid type: %T", rowArgs[1])
	}
	if ndx != 0 && value != "" {
		sc.ans[ndx] = value
	}
	return nil
}

func (sc *SortedConcatenate) WindowValue(ctx *sqlite.FunctionContext) (driver.Value, error) {
	if len(sc.ans) == 0 {
		return "", nil
	}

	keys := make([]int, 0, len(sc.ans))
	for k := range sc.ans {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, sc.ans[k])
	}
	return strings.Join(values, sc.sep), nil
}

func (sc *SortedConcatenate) WindowInverse(ctx *sqlite.FunctionContext, rowArgs []driver.Value) error {
	if ndx, ok := rowArgs[0].(int64); ok {
		delete(sc.ans, int(ndx))
	}
	return nil
}

func (sc *SortedConcatenate) Final(ctx *sqlite.FunctionContext) {}

var registerOnce sync.Once

// RegisterSQLiteFunctions makes the custom functions available to every
// connection opened afterwards. Safe to call more than once.
func RegisterSQLiteFunctions() {
	registerOnce.Do(func() {
		sqlite.MustRegisterFunction("sortconcat", &sqlite.FunctionImpl{
			NArgs:         2,
			Deterministic: true,
			MakeAggregate: func(ctx sqlite.FunctionContext) (sqlite.AggregateFunction, error) {
				return NewSortedConcatenate(ListSeparator), nil
			},
		})
	})
}

// SplitList reverses a sortconcat result.
func SplitList(v string) []string {
	if v == "" {
		return []string{}
	}
	return strings.Split(v, ListSeparator)
}
