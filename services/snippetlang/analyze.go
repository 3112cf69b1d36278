// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package snippetlang derives structural stats from snippet bodies.
//
// Supported languages are parsed with tree-sitter at write time so
// snippet heads can carry line and function counts without reparsing on
// read. Unsupported languages fall back to a plain line count with
// Parsed=false; a parse error is not a write error.
package snippetlang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// languageGrammar maps a normalized language name to its grammar and
// the node types that count as function definitions.
type languageGrammar struct {
	language      *sitter.Language
	functionNodes map[string]bool
}

var grammars = map[string]languageGrammar{
	"go": {
		language:      golang.GetLanguage(),
		functionNodes: set("function_declaration", "method_declaration", "func_literal"),
	},
	"python": {
		language:      python.GetLanguage(),
		functionNodes: set("function_definition", "lambda"),
	},
	"javascript": {
		language: javascript.GetLanguage(),
		functionNodes: set("function_declaration", "function_expression",
			"arrow_function", "method_definition", "generator_function_declaration"),
	},
	"typescript": {
		language: typescript.GetLanguage(),
		functionNodes: set("function_declaration", "function_expression",
			"arrow_function", "method_definition", "generator_function_declaration"),
	},
	"rust": {
		language:      rust.GetLanguage(),
		functionNodes: set("function_item", "closure_expression"),
	},
	"bash": {
		language:      bash.GetLanguage(),
		functionNodes: set("function_definition"),
	},
}

// aliases normalizes common language spellings to grammar keys.
var aliases = map[string]string{
	"golang": "go",
	"py":     "python",
	"js":     "javascript",
	"jsx":    "javascript",
	"ts":     "typescript",
	"tsx":    "typescript",
	"rs":     "rust",
	"sh":     "bash",
	"shell":  "bash",
	"zsh":    "bash",
}

func set(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// Supported reports whether language has a grammar.
func Supported(language string) bool {
	_, ok := grammars[normalize(language)]
	return ok
}

func normalize(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if alias, ok := aliases[language]; ok {
		return alias
	}
	return language
}

// Analyze computes stats for a snippet body. Never fails the write:
// parser errors degrade to the unparsed line count.
func Analyze(ctx context.Context, language, content string) datatypes.LanguageStats {
	stats := datatypes.LanguageStats{
		Language: normalize(language),
		Lines:    countLines(content),
	}

	grammar, ok := grammars[stats.Language]
	if !ok {
		return stats
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar.language)

	tree, err := parser.ParseCtx(ctx, nil, []byte(content))
	if err != nil {
		return stats
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		// Still count what parsed; partial trees are common for
		// fragments pasted without their surrounding file.
		stats.Functions = countFunctions(root, grammar.functionNodes)
		return stats
	}

	stats.Parsed = true
	stats.Functions = countFunctions(root, grammar.functionNodes)
	return stats
}

func countFunctions(node *sitter.Node, functionNodes map[string]bool) int {
	count := 0
	if functionNodes[node.Type()] {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countFunctions(node.Child(i), functionNodes)
	}
	return count
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
