// cmd/openapigen generates an OpenAPI 3.1 spec for the element REST API from
// the element registry.
//
// Output: gen/openapi/openapi.json (or -out; "-" writes to stdout)
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/icons"
	"github.com/matthewbaird/sitecontent/internal/schema"
)

func findProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Fatal("no go.mod found")
		}
		dir = parent
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("openapigen: ")

	out := flag.String("out", "", "output file (default: <project root>/gen/openapi/openapi.json)")
	serverURL := flag.String("server", "http://localhost:8080", "server URL listed in the document")
	flag.Parse()

	reg, err := schema.Default()
	if err != nil {
		log.Fatalf("loading registry: %v", err)
	}
	catalog, err := icons.Default()
	if err != nil {
		log.Fatalf("loading icons: %v", err)
	}

	spec := buildSpec(reg, catalog, *serverURL)
	data, err := json.MarshalIndent(spec, "", "    ")
	if err != nil {
		log.Fatalf("marshaling OpenAPI spec: %v", err)
	}
	// Add trailing newline
	data = append(data, '\n')

	if *out == "-" {
		os.Stdout.Write(data)
		return
	}
	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(findProjectRoot(), "gen", "openapi", "openapi.json")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("creating output dir: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}

	fmt.Printf("openapigen: generated %s (%d bytes, %d paths, %d schemas)\n",
		outPath, len(data), spec.pathCount, spec.schemaCount)
}
