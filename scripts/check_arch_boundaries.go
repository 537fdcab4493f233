package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// allowed maps a source package to the internal packages it may import.
// "cmd" covers every binary under cmd/.
var allowed = map[string]map[string]bool{
	"cmd": {
		"cli": true,
	},
	"cli": {
		"batch":      true,
		"checkpoint": true,
		"config":     true,
		"discovery":  true,
		"metrics":    true,
		"model":      true,
		"transcript": true,
		"ytdlp":      true,
	},
	"batch": {
		"checkpoint": true,
		"metrics":    true,
		"model":      true,
	},
	"config": {
		"checkpoint": true,
	},
	"transcript": {
		"model": true,
		"ytdlp": true,
	},
	"discovery": {
		"ytdlp": true,
	},
	"checkpoint": {
		"model": true,
	},
	"metrics": {
		"model": true,
	},
	"model": {},
	"ytdlp": {},
}

func main() {
	violations := []string{}
	checked := 0

	for _, root := range []string{"cmd", "internal"} {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}

			srcPkg := sourcePackage(path)
			if srcPkg == "" {
				return nil
			}
			allowMap, ok := allowed[srcPkg]
			if !ok {
				violations = append(violations, fmt.Sprintf("%s: unknown source package %q", path, srcPkg))
				return nil
			}

			fset := token.NewFileSet()
			file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
			if err != nil {
				return err
			}
			checked++

			for _, imp := range file.Imports {
				tgtPkg, ok := targetPackage(strings.Trim(imp.Path.Value, "\""))
				if !ok || tgtPkg == srcPkg {
					continue
				}
				if !allowMap[tgtPkg] {
					violations = append(violations, fmt.Sprintf("%s: %s -> %s is forbidden", path, srcPkg, tgtPkg))
				}
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "boundary walk of %s failed: %v\n", root, err)
			os.Exit(1)
		}
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "architecture boundary violations detected:")
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "- %s\n", v)
		}
		os.Exit(1)
	}

	fmt.Printf("architecture boundary check: OK (%d files)\n", checked)
}

func sourcePackage(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "cmd":
		return "cmd"
	case len(parts) >= 3 && parts[0] == "internal":
		return parts[1]
	}
	return ""
}

func targetPackage(importPath string) (string, bool) {
	const prefix = "yt-transcripts/internal/"
	if !strings.HasPrefix(importPath, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(importPath, prefix)
	if rest == "" {
		return "", false
	}
	parts := strings.Split(rest, "/")
	return parts[0], true
}
