package sandbox

import (
	"reflect"
	"testing"
)

func TestCheck(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name   string
		source string
		want   []Violation
	}{
		{
			name:   "clean source",
			source: `var x = 2 + 2; print(x);`,
			want:   nil,
		},
		{
			name:   "require of allowed module",
			source: `var m = require("math"); print(m.pi);`,
			want:   nil,
		},
		{
			name:   "require of disallowed module",
			source: `var fs = require("fs");`,
			want:   []Violation{{Kind: ViolationDisallowedImport, Identifier: "fs"}},
		},
		{
			name:   "bare import",
			source: `import os`,
			want:   []Violation{{Kind: ViolationDisallowedImport, Identifier: "os"}},
		},
		{
			name:   "bare import with dotted module",
			source: `import os.path`,
			want:   []Violation{{Kind: ViolationDisallowedImport, Identifier: "os.path"}},
		},
		{
			name:   "import from clause",
			source: `import { readFile } from "fs";`,
			want:   []Violation{{Kind: ViolationDisallowedImport, Identifier: "fs"}},
		},
		{
			name:   "default import of allowed module",
			source: `import m from "math";`,
			want:   nil,
		},
		{
			name:   "dynamic import",
			source: `import("net").then(function (n) { n.connect(); });`,
			want:   []Violation{{Kind: ViolationDisallowedImport, Identifier: "net"}},
		},
		{
			name:   "from import",
			source: `from os import path`,
			want:   []Violation{{Kind: ViolationDisallowedImport, Identifier: "os"}},
		},
		{
			name:   "blocked identifier",
			source: `eval("2 + 2")`,
			want:   []Violation{{Kind: ViolationBlockedName, Identifier: "eval"}},
		},
		{
			name:   "blocked property access",
			source: `var p = obj.__proto__;`,
			want:   []Violation{{Kind: ViolationBlockedName, Identifier: "__proto__"}},
		},
		{
			name:   "full list in order of first appearance",
			source: `eval(require("fs")); import os`,
			want: []Violation{
				{Kind: ViolationBlockedName, Identifier: "eval"},
				{Kind: ViolationDisallowedImport, Identifier: "fs"},
				{Kind: ViolationDisallowedImport, Identifier: "os"},
			},
		},
		{
			name:   "duplicates reported once",
			source: `require("fs"); require("fs"); eval(1); eval(2);`,
			want: []Violation{
				{Kind: ViolationDisallowedImport, Identifier: "fs"},
				{Kind: ViolationBlockedName, Identifier: "eval"},
			},
		},
		{
			name:   "string literals are not scanned",
			source: `var s = "import os; eval(1)";`,
			want:   nil,
		},
		{
			name:   "comments are not scanned",
			source: "// require(\"fs\")\n/* import os */\nprint(1);",
			want:   nil,
		},
		{
			name:   "template interpolation is scanned",
			source: "var s = `value: ${require(\"fs\")}`;",
			want:   []Violation{{Kind: ViolationDisallowedImport, Identifier: "fs"}},
		},
		{
			name:   "template text is not scanned",
			source: "var s = `import os and eval`;",
			want:   nil,
		},
		{
			name:   "regex literal is not scanned",
			source: `var re = /require\("fs"\)/; print(re.source);`,
			want:   nil,
		},
		{
			name:   "division is not a regex",
			source: `var x = total / count; print(x);`,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.source, policy)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Check(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestCheckCustomPolicy(t *testing.T) {
	policy := Policy{
		AllowedImports: []string{"telemetry"},
		BlockedNames:   []string{"shutdown"},
	}

	got := Check(`require("telemetry"); shutdown();`, policy)
	want := []Violation{{Kind: ViolationBlockedName, Identifier: "shutdown"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Check() = %v, want %v", got, want)
	}
}

func TestViolationString(t *testing.T) {
	v := Violation{Kind: ViolationDisallowedImport, Identifier: "os"}
	if got, want := v.String(), `disallowed import "os"`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	v = Violation{Kind: ViolationBlockedName, Identifier: "eval"}
	if got, want := v.String(), `blocked identifier "eval"`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
