// Package parser is the out-of-scope lexer/parser/AST collaborator
// spec.md §1 and §6.1 describe as an external interface: "the core must
// expose a [compiler] contract these plug into; their semantics are not
// specified here" applies symmetrically to parsing. It is kept in-tree,
// grounded on this codebase's parser/lexer.go + parser/parser.go recursive
// descent structure, because the compiler package needs some producer
// of AST nodes.
package parser

// TokenType enumerates lexical token kinds.
type TokenType int

const (
	TokEOF TokenType = iota
	TokInt
	TokFloat
	TokString
	TokIdent
	TokTrue
	TokFalse
	TokNull

	// Keywords
	TokFunc
	TokLet
	TokIf
	TokElse
	TokWhile
	TokFor
	TokIn
	TokReturn
	TokTry
	TokCatch
	TokFinally
	TokThrow
	TokSpawn
	TokAsync
	TokAwait
	TokYield
	TokMatch
	TokBreak
	TokContinue
	TokTest
	TokOk
	TokErr
	TokSome
	TokNone

	// Punctuation / operators
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokLBracket
	TokRBracket
	TokComma
	TokColon
	TokSemicolon
	TokDot
	TokDotDot
	TokQuestion
	TokArrow

	TokAssign  // =
	TokDefine  // :=
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokCaret
	TokEq
	TokNe
	TokLt
	TokLe
	TokGt
	TokGe
	TokAnd
	TokOr
	TokNot
	TokBitAnd
	TokBitOr
	TokBitXor
	TokBitNot
	TokShl
	TokShr
	TokEllipsis // ...
)

// Token is a single lexed token.
type Token struct {
	Type TokenType
	Text string
	Line int
	Col  int
}

var keywords = map[string]TokenType{
	"func": TokFunc, "let": TokLet, "if": TokIf, "else": TokElse,
	"while": TokWhile, "for": TokFor, "in": TokIn, "return": TokReturn,
	"try": TokTry, "catch": TokCatch, "finally": TokFinally, "throw": TokThrow,
	"spawn": TokSpawn, "async": TokAsync, "await": TokAwait, "yield": TokYield,
	"match": TokMatch, "break": TokBreak, "continue": TokContinue, "test": TokTest,
	"true": TokTrue, "false": TokFalse, "null": TokNull,
	"Ok": TokOk, "Err": TokErr, "Some": TokSome, "None": TokNone,
}
