// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"fictc/internal/ast"
	"fictc/internal/config"
	"fictc/internal/directives"
	"fictc/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: fictc <file.fict.js> [config.yaml]")
		os.Exit(1)
	}

	path := os.Args[1]
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	opts := config.Default()
	if len(os.Args) > 2 {
		opts, err = config.Load(os.Args[2])
		if err != nil {
			color.Red("%s", err)
			os.Exit(1)
		}
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	result, err := pipeline.Compile(path, string(source), opts, log)
	if err != nil {
		reportCompileError(err)
		os.Exit(1)
	}

	for _, fn := range result.Functions {
		if fn.Skipped {
			color.Yellow("— %s left untransformed (use fict-compiler-disable)", fn.Name)
			continue
		}
		fmt.Printf("function %s {\n", fn.Name)
		fmt.Print(ast.PrintStatements(fn.Body.Body))
		fmt.Println("}")
		for _, w := range fn.Warnings {
			fmt.Println("  " + w)
		}
	}

	if len(result.Helpers) > 0 {
		fmt.Printf("// helpers: %v\n", result.Helpers)
	}

	color.Green("✅ Successfully compiled %s", path)
}

// reportCompileError prints a *directives.CompilerError with its kind
// label; any other error is printed plainly.
func reportCompileError(err error) {
	ce, ok := err.(*directives.CompilerError)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}
	color.Red("❌ %s", ce.Error())
}
