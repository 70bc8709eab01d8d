package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/padloop/padloop"
	"github.com/padloop/padloop/engine"
	"github.com/padloop/padloop/version"
)

func main() {
	directory := flag.String("o", "", "Write sheets as .txt files into this directory instead of standard output. The directory and its parents are created if needed.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	process := func(filename string) error {
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %w", filename, err)
		}
		var project padloop.Project
		if errJSON := json.Unmarshal(inputBytes, &project); errJSON != nil {
			if errYaml := yaml.Unmarshal(inputBytes, &project); errYaml != nil {
				return fmt.Errorf("the project could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
			}
		}
		var sheet bytes.Buffer
		if err := engine.WriteArrangementSheet(&sheet, &project); err != nil {
			return fmt.Errorf("could not render sheet for %v: %w", filename, err)
		}
		if *directory == "" {
			fmt.Print(sheet.String())
			return nil
		}
		if err := os.MkdirAll(*directory, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %w", *directory, err)
		}
		_, name := filepath.Split(filename)
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".txt"
		out := filepath.Join(*directory, name)
		if err := os.WriteFile(out, sheet.Bytes(), 0644); err != nil {
			return fmt.Errorf("could not write file %v: %w", out, err)
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			ymlfiles, err := filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
			jsonfiles, err := filepath.Glob(filepath.Join(param, "*.json"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for json files: %v\n", param, err)
				retval = 1
				continue
			}
			for _, file := range append(ymlfiles, jsonfiles...) {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Renders printable arrangement sheets from padloop project files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
