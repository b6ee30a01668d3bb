package lexer

// Dialect tags which of the three public SQL surfaces a lexer/parser
// run targets (spec.md §1, §4.1, §6).
type Dialect int

const (
	PostgreSQL Dialect = iota
	BigQuery
	ClickHouse
)

func (d Dialect) String() string {
	switch d {
	case PostgreSQL:
		return "PostgreSQL"
	case BigQuery:
		return "BigQuery"
	case ClickHouse:
		return "ClickHouse"
	default:
		return "Unknown"
	}
}

// quoting describes how a dialect spells quoted identifiers and string
// escapes; spec.md §4.1: `"` PG, `` ` `` BQ, `"` CH, with differing
// escape rules.
type quoting struct {
	identQuote byte
	// backslashEscapes reports whether \x sequences are interpreted
	// inside a single-quoted string literal (PostgreSQL standard_conforming
	// strings = off behavior and all of ClickHouse/BigQuery).
	backslashEscapes bool
}

func quotingFor(d Dialect) quoting {
	switch d {
	case BigQuery:
		return quoting{identQuote: '`', backslashEscapes: true}
	case ClickHouse:
		return quoting{identQuote: '"', backslashEscapes: true}
	default:
		return quoting{identQuote: '"', backslashEscapes: false}
	}
}

// Keywords reserved in a dialect; unreserved words are still returned as
// TokIdent and the parser decides contextually whether they act as
// keywords (e.g. "AT TIME ZONE" words are only special inside that
// construct).
func keywordsFor(d Dialect) map[string]TokenKind {
	kw := map[string]TokenKind{
		"SELECT": TokSelect, "FROM": TokFrom, "WHERE": TokWhere,
		"GROUP": TokGroup, "BY": TokBy, "ORDER": TokOrder, "HAVING": TokHaving,
		"LIMIT": TokLimit, "OFFSET": TokOffset, "JOIN": TokJoin, "INNER": TokInner,
		"LEFT": TokLeft, "RIGHT": TokRight, "FULL": TokFull, "OUTER": TokOuter,
		"ON": TokOn, "AS": TokAs, "AND": TokAnd, "OR": TokOr, "NOT": TokNot,
		"NULL": TokNull, "TRUE": TokTrue, "FALSE": TokFalse, "IS": TokIs,
		"IN": TokIn, "LIKE": TokLike, "BETWEEN": TokBetween, "CASE": TokCase,
		"WHEN": TokWhen, "THEN": TokThen, "ELSE": TokElse, "END": TokEnd,
		"DISTINCT": TokDistinct, "ALL": TokAll, "UNION": TokUnion,
		"INTERSECT": TokIntersect, "EXCEPT": TokExcept, "INSERT": TokInsert,
		"INTO": TokInto, "VALUES": TokValues, "UPDATE": TokUpdate, "SET": TokSet,
		"DELETE": TokDelete, "CREATE": TokCreate, "TABLE": TokTable,
		"INDEX": TokIndex, "BEGIN": TokBegin, "COMMIT": TokCommit,
		"ROLLBACK": TokRollback, "TRANSACTION": TokTransaction, "WITH": TokWith,
		"RECURSIVE": TokRecursive, "LATERAL": TokLateral, "OVER": TokOver,
		"PARTITION": TokPartition, "WINDOW": TokWindow, "ROWS": TokRows,
		"RANGE": TokRange, "GROUPS": TokGroups, "UNBOUNDED": TokUnbounded,
		"PRECEDING": TokPreceding, "FOLLOWING": TokFollowing, "CURRENT": TokCurrent,
		"ROW": TokRow, "CAST": TokCast, "EXISTS": TokExists, "ANY": TokAny,
		"SOME": TokSome, "ASC": TokAsc, "DESC": TokDesc, "NULLS": TokNulls,
		"FIRST": TokFirst, "LAST": TokLast, "EXPLAIN": TokExplain,
		"SAVEPOINT": TokSavepoint, "RELEASE": TokRelease, "TO": TokTo,
		"RETURNING": TokReturning, "ISOLATION": TokIsolation, "LEVEL": TokLevel,
		"CROSS": TokCross, "USING": TokUsing, "IF": TokIf, "UNIQUE": TokUnique,
		"CHECK": TokCheck, "DEFAULT": TokDefault, "PRIMARY": TokPrimary, "KEY": TokKey,
	}
	switch d {
	case ClickHouse:
		kw["ASOF"] = TokAsof
	}
	return kw
}
