package lexer

import "yachtsql/internal/errs"

// TokenKind enumerates every lexical category the parser consumes,
// including the multi-character operators spec.md §4.1 calls out by
// name (->, ->>, #>, @>, <->, <=>, ?|, ?&, ||, -|-).
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokQuotedIdent
	TokNumber
	TokString
	TokParam // $1 (a bare ? lexes as TokQMark)

	// Punctuation / operators.
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokComma
	TokDot
	TokSemicolon
	TokColon
	TokColonColon // :: cast
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokEq
	TokNeq
	TokLt
	TokLe
	TokGt
	TokGe
	TokArrow       // ->
	TokArrowArrow  // ->>
	TokHashArrow   // #>
	TokAtArrow     // @>
	TokArrowAt     // <@
	TokDistance    // <->
	TokSimEq       // <=>
	TokQMarkPipe   // ?|
	TokQMarkAmp    // ?&
	TokPipePipe    // ||
	TokDashPipeDash // -|-
	TokQMark       // ?

	// Keywords.
	TokSelect
	TokFrom
	TokWhere
	TokGroup
	TokBy
	TokOrder
	TokHaving
	TokLimit
	TokOffset
	TokJoin
	TokInner
	TokLeft
	TokRight
	TokFull
	TokOuter
	TokOn
	TokAs
	TokAnd
	TokOr
	TokNot
	TokNull
	TokTrue
	TokFalse
	TokIs
	TokIn
	TokLike
	TokBetween
	TokCase
	TokWhen
	TokThen
	TokElse
	TokEnd
	TokDistinct
	TokAll
	TokUnion
	TokIntersect
	TokExcept
	TokInsert
	TokInto
	TokValues
	TokUpdate
	TokSet
	TokDelete
	TokCreate
	TokTable
	TokIndex
	TokBegin
	TokCommit
	TokRollback
	TokTransaction
	TokWith
	TokRecursive
	TokLateral
	TokOver
	TokPartition
	TokWindow
	TokRows
	TokRange
	TokGroups
	TokUnbounded
	TokPreceding
	TokFollowing
	TokCurrent
	TokRow
	TokCast
	TokExists
	TokAny
	TokSome
	TokAsc
	TokDesc
	TokNulls
	TokFirst
	TokLast
	TokExplain
	TokSavepoint
	TokRelease
	TokTo
	TokReturning
	TokIsolation
	TokLevel
	TokAsof
	TokCross
	TokUsing
	TokIf
	TokUnique
	TokCheck
	TokDefault
	TokPrimary
	TokKey
)

// Token is one lexical unit plus its source span.
type Token struct {
	Kind TokenKind
	Text string
	Span errs.Span
}
