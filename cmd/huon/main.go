// Command huon parses a HUON file and prints it as indented JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/huon-lang/go-huon"
)

func main() {
	indent := flag.Int("indent", 4, "number of spaces per nesting level")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: huon [-indent n] <filename>")
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("Error reading file: %v", err)
	}
	defer f.Close()

	dec := huon.NewDecoder(f)
	dec.SetIndent(*indent)

	var result any
	if err := dec.Decode(&result); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Error marshalling to JSON: %v", err)
	}

	fmt.Println(string(b))
}
