// Command vegac compiles vega source files to bytecode artifacts.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		outPath     string
		disassemble bool
		dumpAST     bool
		dumpTokens  bool
		dumpASTJSON bool
		verbose     bool
		watch       bool
	)

	cmd := &cobra.Command{
		Use:           "vegac [source file]",
		Short:         "Compile a vega source file to a bytecode artifact",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath := args[0]
			cfg, err := loadConfig(filepath.Dir(sourcePath))
			if err != nil {
				return err
			}

			opts := compileOptions{
				OutPath:     firstNonEmpty(outPath, cfg.Output),
				Disassemble: disassemble,
				DumpAST:     dumpAST,
				DumpTokens:  dumpTokens,
				DumpASTJSON: dumpASTJSON,
				Verbose:     verbose || cfg.Verbose,
				SearchPaths: buildSearchPaths(cfg.SearchPaths),
			}
			if cmd.Flags().Changed("verbose") {
				opts.Verbose = verbose
			}
			useWatch := watch || cfg.Watch
			if cmd.Flags().Changed("watch") {
				useWatch = watch
			}

			if useWatch {
				return runWatch(sourcePath, opts)
			}
			if !compileOnce(sourcePath, opts, os.Stdout, os.Stderr) {
				return fmt.Errorf("compilation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output artifact path (default: input path with .vgb extension)")
	cmd.Flags().BoolVarP(&disassemble, "disassemble", "S", false, "print textual disassembly to stdout instead of writing an artifact")
	cmd.Flags().BoolVar(&dumpAST, "ast", false, "dump the parsed declaration tree instead of compiling")
	cmd.Flags().BoolVar(&dumpTokens, "tokens", false, "dump the token stream instead of compiling")
	cmd.Flags().BoolVar(&dumpASTJSON, "ast-json", false, "dump the parsed tree as schema-validated JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print stage-progress messages to stderr")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "recompile whenever the source file changes")

	return cmd
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// buildSearchPaths assembles the module search path the analyzer
// consults for non-relative imports: entries from VEGA_PATH (joined with
// the OS path-list separator), an implicit "./stdlib" if it exists, then
// whatever .vegac.yaml listed under search_paths.
func buildSearchPaths(fromConfig []string) []string {
	var paths []string
	if env := os.Getenv("VEGA_PATH"); env != "" {
		paths = append(paths, filepath.SplitList(env)...)
	}
	if info, err := os.Stat("./stdlib"); err == nil && info.IsDir() {
		paths = append(paths, "./stdlib")
	}
	paths = append(paths, fromConfig...)
	return paths
}
