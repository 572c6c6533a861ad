// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooltrain Authors

package datatype

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// typeLexer tokenizes data-type expressions. Keywords are plain idents;
// the grammar matches them by value.
var typeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Punct", Pattern: `[<>,:]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Grammar:
//
//	type      = "trigger" | static
//	static    = list | enum | struct | primitive
//	list      = "list" "<" static ">"
//	enum      = "enum" ident "<" ident ("," ident)* ">"
//	struct    = "struct" ident "<" field ("," field)* ">"
//	field     = ident ":" static
//
// trigger is only valid at the top level: it marks a unit-valued slot and
// cannot be an element or column type.
type typeExpr struct {
	Trigger bool        `parser:"  @'trigger'"`
	Static  *staticExpr `parser:"| @@"`
}

type staticExpr struct {
	List      *listExpr   `parser:"  @@"`
	Enum      *enumExpr   `parser:"| @@"`
	Struct    *structExpr `parser:"| @@"`
	Primitive string      `parser:"| @('boolean' | 'number' | 'string' | 'bytes' | 'color' | 'json' | 'svg' | 'path')"`
}

type listExpr struct {
	Elem *staticExpr `parser:"'list' '<' @@ '>'"`
}

type enumExpr struct {
	Name     string   `parser:"'enum' @Ident"`
	Variants []string `parser:"'<' @Ident (',' @Ident)* '>'"`
}

type structExpr struct {
	Name   string       `parser:"'struct' @Ident"`
	Fields []*fieldExpr `parser:"'<' @@ (',' @@)* '>'"`
}

type fieldExpr struct {
	Name string      `parser:"@Ident"`
	Type *staticExpr `parser:"':' @@"`
}

var typeParser = participle.MustBuild[typeExpr](
	participle.Lexer(typeLexer),
)

// Parse parses a data-type expression into its AST. The result's String
// method round-trips to the canonical form of the input.
func Parse(input string) (*DataType, error) {
	expr, err := typeParser.ParseString("", input)
	if err != nil {
		return nil, oops.In("datatype").With("input", input).Wrapf(err, "parsing data type")
	}
	dt, err := expandType(expr)
	if err != nil {
		return nil, oops.In("datatype").With("input", input).Wrap(err)
	}
	return dt, nil
}

// MustParse is Parse for expressions known valid at compile time.
func MustParse(input string) *DataType {
	dt, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return dt
}

func expandType(expr *typeExpr) (*DataType, error) {
	if expr.Trigger {
		return &DataType{Kind: KindTrigger}, nil
	}
	return expandStatic(expr.Static)
}

func expandStatic(expr *staticExpr) (*DataType, error) {
	switch {
	case expr.List != nil:
		elem, err := expandStatic(expr.List.Elem)
		if err != nil {
			return nil, err
		}
		return &DataType{Kind: KindList, Elem: elem}, nil
	case expr.Enum != nil:
		seen := make(map[string]struct{}, len(expr.Enum.Variants))
		for _, v := range expr.Enum.Variants {
			if _, dup := seen[v]; dup {
				return nil, fmt.Errorf("duplicate enum variant %q", v)
			}
			seen[v] = struct{}{}
		}
		return &DataType{
			Kind:     KindEnum,
			Name:     expr.Enum.Name,
			Variants: expr.Enum.Variants,
		}, nil
	case expr.Struct != nil:
		fields := make([]Field, 0, len(expr.Struct.Fields))
		seen := make(map[string]struct{}, len(expr.Struct.Fields))
		for _, f := range expr.Struct.Fields {
			if _, dup := seen[f.Name]; dup {
				return nil, fmt.Errorf("duplicate struct field %q", f.Name)
			}
			seen[f.Name] = struct{}{}
			ft, err := expandStatic(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: f.Name, Type: ft})
		}
		return &DataType{Kind: KindStruct, Name: expr.Struct.Name, Fields: fields}, nil
	default:
		return &DataType{Kind: Kind(expr.Primitive)}, nil
	}
}
