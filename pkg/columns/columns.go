// Package columns defines the closed column-schema vocabulary a table
// plugin publishes at registration time: column types, option bits, and
// the query-constraint operator enum.
package columns

import "fmt"

// Type is a column's SQL type affinity, drawn from a closed set.
type Type string

const (
	TypeText    Type = "TEXT"
	TypeInteger Type = "INTEGER"
	TypeBigInt  Type = "BIGINT"
	TypeDouble  Type = "DOUBLE"
)

// Option is a bitmask of column attributes.
type Option int32

const (
	OptionDefault       Option = 0
	OptionIndex         Option = 1
	OptionRequired      Option = 2
	OptionAdditional    Option = 4
	OptionOptimized     Option = 8
	OptionHidden        Option = 16
	OptionCollateBinary Option = 32
)

// Column describes one column of a table plugin's schema.
type Column struct {
	Name    string
	Type    Type
	Options Option
}

// Row renders the column as the route row shape §3 specifies.
func (c Column) Row() map[string]string {
	return map[string]string{
		"id":   "column",
		"name": c.Name,
		"type": string(c.Type),
		"op":   fmt.Sprintf("%d", int32(c.Options)),
	}
}

// Operator is the closed query-constraint operator enum. Codes are fixed
// by the wire protocol and are not sequential powers of two throughout.
type Operator int32

const (
	OperatorUnique              Operator = 1
	OperatorEquals              Operator = 2
	OperatorGreaterThan         Operator = 4
	OperatorLessThanOrEquals    Operator = 8
	OperatorLessThan            Operator = 16
	OperatorGreaterThanOrEquals Operator = 32
	OperatorMatch               Operator = 64
	OperatorLike                Operator = 65
	OperatorGlob                Operator = 66
	OperatorRegexp              Operator = 67
)

var validOperators = map[Operator]struct{}{
	OperatorUnique: {}, OperatorEquals: {}, OperatorGreaterThan: {},
	OperatorLessThanOrEquals: {}, OperatorLessThan: {}, OperatorGreaterThanOrEquals: {},
	OperatorMatch: {}, OperatorLike: {}, OperatorGlob: {}, OperatorRegexp: {},
}

// ParseOperator validates c against the closed operator enum.
func ParseOperator(c int32) (Operator, error) {
	op := Operator(c)
	if _, ok := validOperators[op]; !ok {
		return 0, fmt.Errorf("columns: %d is not a defined operator", c)
	}
	return op, nil
}

// Constraint is one (operator, expression) pair surfaced to a table plugin
// for optimization; the runtime neither filters nor enforces it.
type Constraint struct {
	Operator   Operator
	Expression string
}

// ConstraintList carries a column's type affinity plus its constraints, as
// surfaced informationally alongside a "generate" request.
type ConstraintList struct {
	Affinity    Type
	Constraints []Constraint
}
