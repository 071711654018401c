package legacy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	unterminatedStringMessageConstant = "unterminated string literal"
	unexpectedCharacterTemplate       = "unexpected character %q"
	unbalancedBracketTemplate         = "unbalanced bracket %q"
	unclosedBracketTemplate           = "unclosed bracket %q"
	invalidEscapeTemplate             = "invalid escape sequence: %v"
	stringPrefixCharactersConstant    = "rRuUbBfF"
	tripleDoubleQuoteConstant         = `"""`
	tripleSingleQuoteConstant         = `'''`
	commentMarkerConstant             = '#'
	lineContinuationCharacterConstant = '\\'
	operatorCharactersConstant        = "=+-*/%<>!&|^~@.;"
	openingBracketCharactersConstant  = "([{"
	closingBracketCharactersConstant  = ")]}"
	punctuationCharactersConstant     = ",:"
	maximumStringPrefixLengthConstant = 2
	rawStringPrefixCharactersConstant = "rR"
)

type tokenKind int

const (
	tokenName tokenKind = iota
	tokenString
	tokenNumber
	tokenOperator
	tokenOpen
	tokenClose
	tokenPunctuation
	tokenNewline
	tokenEnd
)

type token struct {
	kind   tokenKind
	text   string
	value  string
	line   int
	column int
}

// SyntaxError reports a tokenizer or parser failure with its source position.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

// Error describes the syntax failure.
func (syntaxError SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", syntaxError.Line, syntaxError.Column, syntaxError.Message)
}

type tokenizer struct {
	source       []rune
	offset       int
	line         int
	column       int
	bracketStack []rune
	tokens       []token
}

// tokenize splits source into tokens. Newline tokens are emitted only for
// logical line ends, never inside brackets or after a line continuation.
func tokenize(source string) ([]token, error) {
	scanner := &tokenizer{source: []rune(source), line: 1, column: 1}
	for {
		done, scanError := scanner.next()
		if scanError != nil {
			return nil, scanError
		}
		if done {
			break
		}
	}

	if len(scanner.bracketStack) > 0 {
		return nil, SyntaxError{Line: scanner.line, Column: scanner.column, Message: fmt.Sprintf(unclosedBracketTemplate, scanner.bracketStack[len(scanner.bracketStack)-1])}
	}

	scanner.emit(tokenNewline, "", "", scanner.line, scanner.column)
	scanner.emit(tokenEnd, "", "", scanner.line, scanner.column)
	return scanner.tokens, nil
}

func (scanner *tokenizer) next() (bool, error) {
	if scanner.offset >= len(scanner.source) {
		return true, nil
	}

	current := scanner.source[scanner.offset]
	startLine, startColumn := scanner.line, scanner.column

	switch {
	case current == '\n':
		scanner.advance(1)
		if len(scanner.bracketStack) == 0 {
			scanner.emit(tokenNewline, "\n", "", startLine, startColumn)
		}
	case current == ' ' || current == '\t' || current == '\r' || current == '\f':
		scanner.advance(1)
	case current == commentMarkerConstant:
		for scanner.offset < len(scanner.source) && scanner.source[scanner.offset] != '\n' {
			scanner.advance(1)
		}
	case current == lineContinuationCharacterConstant:
		scanner.advance(1)
		if scanner.offset < len(scanner.source) && scanner.source[scanner.offset] == '\r' {
			scanner.advance(1)
		}
		if scanner.offset < len(scanner.source) && scanner.source[scanner.offset] == '\n' {
			scanner.advance(1)
		}
	case current == '"' || current == '\'':
		return false, scanner.scanString(0)
	case isNameStart(current):
		prefixLength := scanner.stringPrefixLength()
		if prefixLength > 0 {
			return false, scanner.scanString(prefixLength)
		}
		scanner.scanName()
	case unicode.IsDigit(current) || (current == '.' && scanner.peekIsDigit(1)):
		scanner.scanNumber()
	case strings.ContainsRune(openingBracketCharactersConstant, current):
		scanner.bracketStack = append(scanner.bracketStack, current)
		scanner.advance(1)
		scanner.emit(tokenOpen, string(current), "", startLine, startColumn)
	case strings.ContainsRune(closingBracketCharactersConstant, current):
		if len(scanner.bracketStack) == 0 || !bracketsMatch(scanner.bracketStack[len(scanner.bracketStack)-1], current) {
			return false, SyntaxError{Line: startLine, Column: startColumn, Message: fmt.Sprintf(unbalancedBracketTemplate, current)}
		}
		scanner.bracketStack = scanner.bracketStack[:len(scanner.bracketStack)-1]
		scanner.advance(1)
		scanner.emit(tokenClose, string(current), "", startLine, startColumn)
	case strings.ContainsRune(punctuationCharactersConstant, current):
		scanner.advance(1)
		scanner.emit(tokenPunctuation, string(current), "", startLine, startColumn)
	case strings.ContainsRune(operatorCharactersConstant, current):
		operatorLength := 1
		for scanner.offset+operatorLength < len(scanner.source) && strings.ContainsRune(operatorCharactersConstant, scanner.source[scanner.offset+operatorLength]) && scanner.source[scanner.offset+operatorLength] != '.' {
			operatorLength++
		}
		text := string(scanner.source[scanner.offset : scanner.offset+operatorLength])
		scanner.advance(operatorLength)
		scanner.emit(tokenOperator, text, "", startLine, startColumn)
	default:
		return false, SyntaxError{Line: startLine, Column: startColumn, Message: fmt.Sprintf(unexpectedCharacterTemplate, current)}
	}

	return false, nil
}

func (scanner *tokenizer) stringPrefixLength() int {
	for prefixLength := 1; prefixLength <= maximumStringPrefixLengthConstant; prefixLength++ {
		if scanner.offset+prefixLength >= len(scanner.source) {
			return 0
		}
		if !strings.ContainsRune(stringPrefixCharactersConstant, scanner.source[scanner.offset+prefixLength-1]) {
			return 0
		}
		following := scanner.source[scanner.offset+prefixLength]
		if following == '"' || following == '\'' {
			return prefixLength
		}
	}
	return 0
}

func (scanner *tokenizer) scanString(prefixLength int) error {
	startLine, startColumn := scanner.line, scanner.column
	startOffset := scanner.offset
	prefix := string(scanner.source[scanner.offset : scanner.offset+prefixLength])
	scanner.advance(prefixLength)

	quote := scanner.source[scanner.offset]
	delimiter := string(quote)
	remaining := string(scanner.source[scanner.offset:])
	if strings.HasPrefix(remaining, tripleDoubleQuoteConstant) || strings.HasPrefix(remaining, tripleSingleQuoteConstant) {
		delimiter = strings.Repeat(string(quote), 3)
	}
	scanner.advance(len(delimiter))

	var body strings.Builder
	for {
		if scanner.offset >= len(scanner.source) {
			return SyntaxError{Line: startLine, Column: startColumn, Message: unterminatedStringMessageConstant}
		}
		current := scanner.source[scanner.offset]
		if current == '\\' && scanner.offset+1 < len(scanner.source) {
			body.WriteRune(current)
			body.WriteRune(scanner.source[scanner.offset+1])
			scanner.advance(2)
			continue
		}
		if current == '\n' && len(delimiter) == 1 {
			return SyntaxError{Line: startLine, Column: startColumn, Message: unterminatedStringMessageConstant}
		}
		if strings.HasPrefix(string(scanner.source[scanner.offset:min(scanner.offset+len(delimiter), len(scanner.source))]), delimiter) {
			scanner.advance(len(delimiter))
			break
		}
		body.WriteRune(current)
		scanner.advance(1)
	}

	value := body.String()
	if !strings.ContainsAny(prefix, rawStringPrefixCharactersConstant) {
		unescaped, unescapeError := unescapePythonString(value)
		if unescapeError != nil {
			return SyntaxError{Line: startLine, Column: startColumn, Message: fmt.Sprintf(invalidEscapeTemplate, unescapeError)}
		}
		value = unescaped
	}

	scanner.emit(tokenString, string(scanner.source[startOffset:scanner.offset]), value, startLine, startColumn)
	return nil
}

func (scanner *tokenizer) scanName() {
	startLine, startColumn := scanner.line, scanner.column
	startOffset := scanner.offset
	for scanner.offset < len(scanner.source) && isNamePart(scanner.source[scanner.offset]) {
		scanner.advance(1)
	}
	scanner.emit(tokenName, string(scanner.source[startOffset:scanner.offset]), "", startLine, startColumn)
}

func (scanner *tokenizer) scanNumber() {
	startLine, startColumn := scanner.line, scanner.column
	startOffset := scanner.offset
	for scanner.offset < len(scanner.source) {
		current := scanner.source[scanner.offset]
		if unicode.IsDigit(current) || unicode.IsLetter(current) || current == '.' || current == '_' {
			scanner.advance(1)
			continue
		}
		break
	}
	scanner.emit(tokenNumber, string(scanner.source[startOffset:scanner.offset]), "", startLine, startColumn)
}

func (scanner *tokenizer) peekIsDigit(distance int) bool {
	position := scanner.offset + distance
	return position < len(scanner.source) && unicode.IsDigit(scanner.source[position])
}

func (scanner *tokenizer) advance(count int) {
	for index := 0; index < count && scanner.offset < len(scanner.source); index++ {
		if scanner.source[scanner.offset] == '\n' {
			scanner.line++
			scanner.column = 1
		} else {
			scanner.column++
		}
		scanner.offset++
	}
}

func (scanner *tokenizer) emit(kind tokenKind, text string, value string, line int, column int) {
	scanner.tokens = append(scanner.tokens, token{kind: kind, text: text, value: value, line: line, column: column})
}

func isNameStart(candidate rune) bool {
	return candidate == '_' || unicode.IsLetter(candidate)
}

func isNamePart(candidate rune) bool {
	return isNameStart(candidate) || unicode.IsDigit(candidate)
}

func bracketsMatch(opening rune, closing rune) bool {
	switch opening {
	case '(':
		return closing == ')'
	case '[':
		return closing == ']'
	case '{':
		return closing == '}'
	}
	return false
}

// unescapePythonString resolves backslash escapes. strconv handles the
// shared C-style escapes; Python-only forms are normalized first.
func unescapePythonString(raw string) (string, error) {
	if !strings.ContainsRune(raw, '\\') {
		return raw, nil
	}

	var normalized strings.Builder
	runes := []rune(raw)
	for index := 0; index < len(runes); index++ {
		current := runes[index]
		if current != '\\' || index+1 >= len(runes) {
			switch current {
			case '"':
				normalized.WriteString(`\"`)
			case '\n':
				normalized.WriteString(`\n`)
			case '\r':
				normalized.WriteString(`\r`)
			case '\\':
				normalized.WriteString(`\\`)
			default:
				normalized.WriteRune(current)
			}
			continue
		}

		following := runes[index+1]
		switch following {
		case '\n':
			index++
		case '\'':
			normalized.WriteRune('\'')
			index++
		case '"':
			normalized.WriteString(`\"`)
			index++
		case '\\', 'a', 'b', 'f', 'n', 'r', 't', 'v', 'x', 'u', 'U', '0', '1', '2', '3', '4', '5', '6', '7':
			normalized.WriteRune('\\')
			normalized.WriteRune(following)
			index++
		default:
			normalized.WriteString(`\\`)
		}
	}

	unquoted, unquoteError := strconv.Unquote(`"` + normalized.String() + `"`)
	if unquoteError != nil {
		return "", unquoteError
	}
	return unquoted, nil
}
