package yachtsql

import (
	"yachtsql/internal/lexer"
	"yachtsql/internal/txn"
)

// Options configures an Executor (SPEC_FULL.md §10 "ambient stack"). New
// applies defaults to any field left at its zero value, the pattern the
// wider product family's options.go files follow.
type Options struct {
	// Dialect selects which of the three SQL surfaces Execute/Prepare
	// parse against. Defaults to PostgreSQL.
	Dialect lexer.Dialect
	// DefaultIsolation is the isolation level an implicit (statement-only)
	// transaction runs under, and the level BEGIN uses when it doesn't
	// name one explicitly. Its zero value is txn.ReadUncommitted, and New
	// treats the zero value as "use ReadCommitted", so ReadUncommitted
	// cannot be chosen through this field; BEGIN ... ISOLATION LEVEL READ
	// UNCOMMITTED or Executor.Begin(txn.ReadUncommitted) selects it for
	// one explicit transaction.
	DefaultIsolation txn.Isolation
	// BatchSize is stored but read by nothing: Execute returns a query's
	// whole result as a single RecordBatch whatever its value.
	BatchSize int
	// LogLevel configures internal/obs's logger ("DEBUG"/"INFO"/"WARN"/
	// "ERROR"). Defaults to "INFO".
	LogLevel string
}

func (o Options) withDefaults() Options {
	if o.DefaultIsolation == txn.ReadUncommitted {
		o.DefaultIsolation = txn.ReadCommitted
	}
	if o.LogLevel == "" {
		o.LogLevel = "INFO"
	}
	return o
}
