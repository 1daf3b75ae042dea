// Package naming defines the hierarchical names of testbench components,
// such as "Env.Seqr" or "Env.Seq[1]".
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a NamedBase after checking the name.
func MakeNamedBase(name string) NamedBase {
	NameMustBeValid(name)
	return NamedBase{name: name}
}

// A Token is one dot separated part of a name, like "Seq[1]".
type Token struct {
	Elem  string
	Index []int
}

// Parse splits a name into tokens and checks every token.
func Parse(name string) ([]Token, error) {
	parts := strings.Split(name, ".")
	tokens := make([]Token, 0, len(parts))

	for _, part := range parts {
		token, err := parseToken(part)
		if err != nil {
			return nil, fmt.Errorf("name %q: %w", name, err)
		}

		tokens = append(tokens, token)
	}

	return tokens, nil
}

func parseToken(part string) (Token, error) {
	elem, rest, _ := strings.Cut(part, "[")
	if err := elemValid(elem); err != nil {
		return Token{}, err
	}

	token := Token{Elem: elem}
	if rest == "" {
		return token, nil
	}

	for _, idx := range strings.Split("["+rest, "[")[1:] {
		num, ok := strings.CutSuffix(idx, "]")
		if !ok {
			return Token{}, fmt.Errorf("unmatched bracket in %q", part)
		}

		i, err := strconv.Atoi(num)
		if err != nil {
			return Token{}, fmt.Errorf("index %q is not an integer", num)
		}

		token.Index = append(token.Index, i)
	}

	return token, nil
}

func elemValid(elem string) error {
	if elem == "" {
		return fmt.Errorf("empty element")
	}

	if elem[0] < 'A' || elem[0] > 'Z' {
		return fmt.Errorf("element %q must start with a capital letter", elem)
	}

	if strings.ContainsAny(elem, "_-'\" ]") {
		return fmt.Errorf("element %q has an invalid character", elem)
	}

	return nil
}

// NameMustBeValid panics if the name is not a valid hierarchical name.
func NameMustBeValid(name string) {
	if _, err := Parse(name); err != nil {
		panic(err.Error())
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name for one element of a series.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
