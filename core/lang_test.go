package core

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"python shebang", "#!/usr/bin/env python3\nx = 1", "python"},
		{"python def", "def greet(name):\n    return name", "python"},
		{"python import", "import os\nos.getcwd()", "python"},
		{"python from import", "from pathlib import Path", "python"},
		{"python print", "print(\"hello\")", "python"},
		{"bash shebang", "#!/bin/bash\necho hi", "bash"},
		{"cpp include", "#include <iostream>\nint main() { return 0; }", "cpp"},
		{"cpp std", "std::vector<int> v;", "cpp"},
		{"c include", "#include <stdio.h>\nint main(void) { return 0; }", "c"},
		{"java class", "public class Main {\n}", "java"},
		{"java print", "System.out.println(\"hi\");", "java"},
		{"go package", "package main\n\nvar x int", "go"},
		{"go func", "func add(a, b int) int { return a + b }", "go"},
		{"rust main", "fn main() {\n    println!(\"hi\");\n}", "rust"},
		{"html doctype", "<!DOCTYPE html>\n<body></body>", "html"},
		{"javascript console", "console.log('hi');", "javascript"},
		{"javascript const", "const x = 40 + 2;", "javascript"},
		{"sql select", "SELECT id FROM users WHERE id = 1;", "sql"},
		{"c-family braces", "int add(int a, int b) {\n  return a + b;\n}", "c"},
		{"prose falls through", "just words, nothing to see", "python"},
		{"empty falls through", "", "python"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.content)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyPriority(t *testing.T) {
	// a snippet matching both the python rules and the generic brace
	// rule must classify by list position, so python wins
	content := "import ctypes\nvoid helper(int a) {\n}"
	if got := Classify(content); got != "python" {
		t.Errorf("got %q, want python", got)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	content := "print('x')\nconsole.log('x');"
	first := Classify(content)
	for i := 0; i < 50; i++ {
		if got := Classify(content); got != first {
			t.Fatalf("classification changed: %q then %q", first, got)
		}
	}
}

func TestAssignName(t *testing.T) {
	tests := []struct {
		language string
		ordinal  int
		want     string
	}{
		{"python", 0, "main.py"},
		{"python", 1, "app.py"},
		{"python", 3, "utils.py"},
		{"python", 4, "main.py"}, // wraps
		{"go", 0, "main.go"},
		{"go", 2, "main.go"},
		{"javascript", 1, "app.js"},
		{"java", 0, "Main.java"},
		{"typescript", 3, "file3.ts"},
		{"fortran", 0, "file0.txt"},
		{"json", 2, "file2.json"},
	}
	for _, tt := range tests {
		got := AssignName(tt.language, tt.ordinal)
		if got != tt.want {
			t.Errorf("AssignName(%q, %d): got %q, want %q",
				tt.language, tt.ordinal, got, tt.want)
		}
	}
}

func TestExt(t *testing.T) {
	if got := Ext("python"); got != "py" {
		t.Errorf("python ext: got %q", got)
	}
	if got := Ext("c++"); got != "cpp" {
		t.Errorf("c++ ext: got %q", got)
	}
	if got := Ext("klingon"); got != "txt" {
		t.Errorf("unknown ext: got %q", got)
	}
}
