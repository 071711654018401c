package legacy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	assignmentOperatorConstant       = "="
	concatenationOperatorConstant    = "+"
	negationOperatorConstant         = "-"
	pythonTrueConstant               = "True"
	pythonFalseConstant              = "False"
	pythonNoneConstant               = "None"
	unsupportedExpressionMessage     = "unsupported expression"
	invalidNumberTemplate            = "invalid number literal %q"
	dictionaryKeyNotStringMessage    = "dictionary keys must be strings"
	concatenationTypeMismatchMessage = "operands of + must both be strings or both be lists"
)

// Assignments holds the literal values bound by top-level assignments, keyed
// by variable name. Values are string, int64, float64, bool, nil, []any or
// map[string]any.
type Assignments map[string]any

// errUnsupportedExpression marks a statement the evaluator cannot reduce to a
// literal. Such statements are skipped rather than reported.
var errUnsupportedExpression = errors.New(unsupportedExpressionMessage)

type parser struct {
	tokens      []token
	position    int
	assignments Assignments
}

// ParseAssignments evaluates every top-level `name = literal` statement of a
// setup script. Later assignments to the same name replace earlier ones.
func ParseAssignments(source string) (Assignments, error) {
	tokens, tokenizeError := tokenize(source)
	if tokenizeError != nil {
		return nil, tokenizeError
	}

	statementParser := &parser{tokens: tokens, assignments: Assignments{}}
	for statementParser.peek().kind != tokenEnd {
		if statementError := statementParser.parseStatement(); statementError != nil {
			return nil, statementError
		}
	}
	return statementParser.assignments, nil
}

func (statementParser *parser) parseStatement() error {
	startToken := statementParser.peek()
	if startToken.kind == tokenNewline {
		statementParser.position++
		return nil
	}

	if startToken.kind != tokenName || startToken.column != 1 || !statementParser.isSimpleAssignment() {
		statementParser.skipLogicalLine()
		return nil
	}

	variableName := startToken.text
	statementParser.position += 2

	value, expressionError := statementParser.parseExpression()
	if expressionError != nil {
		if errors.Is(expressionError, errUnsupportedExpression) {
			statementParser.skipLogicalLine()
			return nil
		}
		return expressionError
	}

	if statementParser.peek().kind != tokenNewline {
		statementParser.skipLogicalLine()
		return nil
	}

	statementParser.assignments[variableName] = value
	statementParser.position++
	return nil
}

func (statementParser *parser) isSimpleAssignment() bool {
	following := statementParser.peekAt(1)
	return following.kind == tokenOperator && following.text == assignmentOperatorConstant
}

func (statementParser *parser) skipLogicalLine() {
	for {
		current := statementParser.peek()
		if current.kind == tokenEnd {
			return
		}
		statementParser.position++
		if current.kind == tokenNewline {
			return
		}
	}
}

func (statementParser *parser) parseExpression() (any, error) {
	leftValue, leftError := statementParser.parseOperand()
	if leftError != nil {
		return nil, leftError
	}

	for {
		current := statementParser.peek()
		if current.kind != tokenOperator || current.text != concatenationOperatorConstant {
			return leftValue, nil
		}
		statementParser.position++

		rightValue, rightError := statementParser.parseOperand()
		if rightError != nil {
			return nil, rightError
		}

		combinedValue, combineError := concatenate(leftValue, rightValue)
		if combineError != nil {
			return nil, combineError
		}
		leftValue = combinedValue
	}
}

func (statementParser *parser) parseOperand() (any, error) {
	current := statementParser.peek()

	switch current.kind {
	case tokenString:
		var builder strings.Builder
		for statementParser.peek().kind == tokenString {
			builder.WriteString(statementParser.peek().value)
			statementParser.position++
		}
		return builder.String(), nil
	case tokenNumber:
		statementParser.position++
		return parseNumber(current)
	case tokenOperator:
		if current.text != negationOperatorConstant || statementParser.peekAt(1).kind != tokenNumber {
			return nil, errUnsupportedExpression
		}
		statementParser.position++
		numberToken := statementParser.peek()
		statementParser.position++
		numberValue, numberError := parseNumber(numberToken)
		if numberError != nil {
			return nil, numberError
		}
		switch typedValue := numberValue.(type) {
		case int64:
			return -typedValue, nil
		case float64:
			return -typedValue, nil
		}
		return nil, errUnsupportedExpression
	case tokenName:
		return statementParser.parseName(current)
	case tokenOpen:
		return statementParser.parseCollection(current)
	}

	return nil, errUnsupportedExpression
}

func (statementParser *parser) parseName(current token) (any, error) {
	following := statementParser.peekAt(1)
	if following.kind == tokenOpen && following.text == "(" {
		return nil, errUnsupportedExpression
	}
	if following.kind == tokenOperator && following.text == "." {
		return nil, errUnsupportedExpression
	}

	statementParser.position++
	switch current.text {
	case pythonTrueConstant:
		return true, nil
	case pythonFalseConstant:
		return false, nil
	case pythonNoneConstant:
		return nil, nil
	}

	referencedValue, known := statementParser.assignments[current.text]
	if !known {
		return nil, errUnsupportedExpression
	}
	return cloneValue(referencedValue), nil
}

func (statementParser *parser) parseCollection(opening token) (any, error) {
	statementParser.position++

	switch opening.text {
	case "[":
		return statementParser.parseSequence("]")
	case "(":
		return statementParser.parseSequence(")")
	case "{":
		return statementParser.parseDictionary()
	}
	return nil, errUnsupportedExpression
}

// parseSequence reads list and tuple bodies. A parenthesized expression
// without a comma is a grouping, not a tuple.
func (statementParser *parser) parseSequence(closing string) (any, error) {
	items := []any{}
	separatorSeen := false
	for {
		current := statementParser.peek()
		if current.kind == tokenClose && current.text == closing {
			statementParser.position++
			if closing == ")" && len(items) == 1 && !separatorSeen {
				return items[0], nil
			}
			return items, nil
		}

		item, itemError := statementParser.parseExpression()
		if itemError != nil {
			return nil, itemError
		}
		items = append(items, item)

		separator := statementParser.peek()
		switch {
		case separator.kind == tokenPunctuation && separator.text == ",":
			separatorSeen = true
			statementParser.position++
		case separator.kind == tokenClose && separator.text == closing:
		default:
			return nil, errUnsupportedExpression
		}
	}
}

func (statementParser *parser) parseDictionary() (any, error) {
	entries := map[string]any{}
	for {
		current := statementParser.peek()
		if current.kind == tokenClose && current.text == "}" {
			statementParser.position++
			return entries, nil
		}

		keyValue, keyError := statementParser.parseExpression()
		if keyError != nil {
			return nil, keyError
		}
		key, keyIsString := keyValue.(string)
		if !keyIsString {
			return nil, fmt.Errorf("%w: %s", errUnsupportedExpression, dictionaryKeyNotStringMessage)
		}

		colon := statementParser.peek()
		if colon.kind != tokenPunctuation || colon.text != ":" {
			return nil, errUnsupportedExpression
		}
		statementParser.position++

		entryValue, valueError := statementParser.parseExpression()
		if valueError != nil {
			return nil, valueError
		}
		entries[key] = entryValue

		separator := statementParser.peek()
		switch {
		case separator.kind == tokenPunctuation && separator.text == ",":
			statementParser.position++
		case separator.kind == tokenClose && separator.text == "}":
		default:
			return nil, errUnsupportedExpression
		}
	}
}

func (statementParser *parser) peek() token {
	return statementParser.peekAt(0)
}

func (statementParser *parser) peekAt(distance int) token {
	position := statementParser.position + distance
	if position >= len(statementParser.tokens) {
		return statementParser.tokens[len(statementParser.tokens)-1]
	}
	return statementParser.tokens[position]
}

func parseNumber(numberToken token) (any, error) {
	cleaned := strings.ReplaceAll(numberToken.text, "_", "")
	if integerValue, integerError := strconv.ParseInt(cleaned, 0, 64); integerError == nil {
		return integerValue, nil
	}
	if floatValue, floatError := strconv.ParseFloat(cleaned, 64); floatError == nil {
		return floatValue, nil
	}
	return nil, fmt.Errorf("%w: "+invalidNumberTemplate, errUnsupportedExpression, numberToken.text)
}

func concatenate(leftValue any, rightValue any) (any, error) {
	switch typedLeft := leftValue.(type) {
	case string:
		if typedRight, rightIsString := rightValue.(string); rightIsString {
			return typedLeft + typedRight, nil
		}
	case []any:
		if typedRight, rightIsList := rightValue.([]any); rightIsList {
			combined := make([]any, 0, len(typedLeft)+len(typedRight))
			combined = append(combined, typedLeft...)
			return append(combined, typedRight...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errUnsupportedExpression, concatenationTypeMismatchMessage)
}

func cloneValue(value any) any {
	switch typedValue := value.(type) {
	case []any:
		cloned := make([]any, len(typedValue))
		for index := range typedValue {
			cloned[index] = cloneValue(typedValue[index])
		}
		return cloned
	case map[string]any:
		cloned := make(map[string]any, len(typedValue))
		for key, entry := range typedValue {
			cloned[key] = cloneValue(entry)
		}
		return cloned
	}
	return value
}
