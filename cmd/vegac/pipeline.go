package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vega-lang/vegac/internal/ast"
	"github.com/vega-lang/vegac/internal/bytecode"
	"github.com/vega-lang/vegac/internal/lexer"
	"github.com/vega-lang/vegac/internal/parser"
	"github.com/vega-lang/vegac/internal/sema"
)

// compileOptions collects everything a single compile invocation needs,
// already merged from flags and an optional .vegac.yaml.
type compileOptions struct {
	OutPath     string
	Disassemble bool
	DumpAST     bool
	DumpTokens  bool
	DumpASTJSON bool
	Verbose     bool
	SearchPaths []string
}

func outputPathFor(sourcePath, explicit string) string {
	if explicit != "" {
		return explicit
	}
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + ".vgb"
}

// compileOnce runs the full lex -> parse -> analyze -> emit -> write
// pipeline for one source file and reports success. Diagnostics are
// written to errOut in "file:line:column: error: message" form; when
// opts.Disassemble or a dump flag is set, the corresponding text goes to
// out.
func compileOnce(sourcePath string, opts compileOptions, out, errOut io.Writer) bool {
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))
	verbosef := func(format string, args ...any) {
		if opts.Verbose {
			fmt.Fprintf(errOut, format, args...)
		}
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", sourcePath, err)
		return false
	}

	verbosef("lexing %s\n", sourcePath)
	lex := lexer.New(source, sourcePath, lexer.WithLogger(logger))
	if opts.DumpTokens {
		return dumpTokens(lex, sourcePath, out, errOut)
	}

	verbosef("parsing %s\n", sourcePath)
	p := parser.New(lex)
	program := p.ParseProgram()
	if p.HadError() {
		fmt.Fprintf(errOut, "%s: error: %s\n", p.ErrorLocation(), p.ErrorMessage())
		return false
	}

	if opts.DumpAST {
		return dumpAST(program, out)
	}
	if opts.DumpASTJSON {
		return dumpASTJSON(program, out, errOut)
	}

	verbosef("analyzing %s\n", sourcePath)
	an := sema.NewAnalyzer(sema.WithLogger(logger))
	for _, sp := range opts.SearchPaths {
		an.AddSearchPath(sp)
	}
	if !an.Analyze(program, sourcePath) {
		fmt.Fprintf(errOut, "%s: error: %s\n", an.ErrorLocation(), an.ErrorMessage())
		return false
	}
	for _, w := range an.Warnings() {
		fmt.Fprintf(errOut, "%s: warning: %s\n", sourcePath, w)
	}

	verbosef("emitting bytecode for %s\n", sourcePath)
	em := bytecode.NewEmitter()
	for _, mod := range an.ModulePrograms() {
		if !em.Generate(mod) {
			fmt.Fprintf(errOut, "%s: error: %s\n", em.ErrorLocation(), em.ErrorMessage())
			return false
		}
	}
	if !em.Generate(program) {
		fmt.Fprintf(errOut, "%s: error: %s\n", em.ErrorLocation(), em.ErrorMessage())
		return false
	}

	if opts.Disassemble {
		if err := bytecode.Disassemble(out, em); err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", sourcePath, err)
			return false
		}
		return true
	}

	outPath := outputPathFor(sourcePath, opts.OutPath)
	w := bytecode.NewWriter()
	digest, err := w.WriteFile(outPath, em)
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", outPath, err)
		return false
	}
	verbosef("wrote %s (%s)\n", outPath, hex.EncodeToString(digest[:8]))
	return true
}

func dumpTokens(lex *lexer.Lexer, sourcePath string, out, errOut io.Writer) bool {
	for {
		tok := lex.NextToken()
		fmt.Fprintf(out, "%-12s %q\n", tok.Kind, tok.Text)
		if tok.Kind == lexer.EOF {
			break
		}
	}
	if lex.HadError() {
		fmt.Fprintf(errOut, "%s: error: %s\n", lex.ErrorLocation(), lex.ErrorMessage())
		return false
	}
	return true
}

func dumpAST(program *ast.Program, out io.Writer) bool {
	for _, decl := range program.Decls() {
		fmt.Fprintf(out, "%s %s\n", declKindName(decl.Kind), decl.Name)
	}
	return true
}

func declKindName(k ast.DeclKind) string {
	switch k {
	case ast.DeclImport:
		return "import"
	case ast.DeclAgent:
		return "agent"
	case ast.DeclFunction:
		return "fn"
	case ast.DeclTool:
		return "tool"
	default:
		return "decl"
	}
}
