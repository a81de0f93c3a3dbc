package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/noah-isme/resort-quote/internal/refdata"
)

// refdata_check validates reference data fixtures before they are seeded.
// Exit code 0 = ok, 1 = violation, 2 = other error.
func main() {
	roots := os.Args[1:]
	if len(roots) == 0 {
		roots = []string{"internal/refdata/testdata"}
	}
	var violations []string
	for _, root := range roots {
		found, err := scan(root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "refdata_check error: %v\n", err)
			os.Exit(2)
		}
		violations = append(violations, found...)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "VIOLATION: %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("refdata_check: OK")
}

func scan(root string) ([]string, error) {
	var violations []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		if problem := checkFile(path); problem != nil {
			violations = append(violations, fmt.Sprintf("%s: %v", path, problem))
		}
		return nil
	})
	return violations, err
}

func checkFile(path string) error {
	records, err := refdata.FileSource{Path: path}.Load(context.Background())
	if err != nil {
		return err
	}
	if len(records.Resorts) == 0 {
		return errors.New("no resorts defined")
	}
	_, err = refdata.NewSnapshot(records)
	return err
}
