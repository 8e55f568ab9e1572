package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vega-lang/vegac/internal/ast"
)

// astSchemaJSON is the shape every --ast-json dump is validated against
// before being written out. It only pins down the top-level structure;
// nested expression/statement shapes are left open since the tree's
// variant encoding (ExprKind/StmtKind as plain ints) is meant to be
// consumed by tooling that already knows the grammar.
const astSchemaJSON = `{
  "type": "object",
  "properties": {
    "Filename": {"type": "string"},
    "Imports": {"type": ["array", "null"]},
    "Agents": {"type": ["array", "null"]},
    "Funcs": {"type": ["array", "null"]}
  },
  "required": ["Filename"]
}`

func compileASTSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ast.json", strings.NewReader(astSchemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile("ast.json")
}

// dumpASTJSON marshals program to JSON, validates it against
// astSchemaJSON, and writes the (pretty-printed) result to out. A schema
// violation is reported to errOut and treated as a compile failure: it
// would mean the emitted shape drifted from what downstream tooling
// expects.
func dumpASTJSON(program *ast.Program, out, errOut io.Writer) bool {
	data, err := json.Marshal(program)
	if err != nil {
		fmt.Fprintf(errOut, "ast-json: %v\n", err)
		return false
	}

	schema, err := compileASTSchema()
	if err != nil {
		fmt.Fprintf(errOut, "ast-json: schema: %v\n", err)
		return false
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		fmt.Fprintf(errOut, "ast-json: %v\n", err)
		return false
	}
	if err := schema.Validate(doc); err != nil {
		fmt.Fprintf(errOut, "ast-json: %v\n", err)
		return false
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Fprintf(errOut, "ast-json: %v\n", err)
		return false
	}
	pretty.WriteByte('\n')
	if _, err := out.Write(pretty.Bytes()); err != nil {
		fmt.Fprintf(errOut, "ast-json: %v\n", err)
		return false
	}
	return true
}
