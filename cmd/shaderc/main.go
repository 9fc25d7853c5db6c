// Command shaderc compiles WGSL sources to the SPIR-V binaries the pipeline
// builder loads. A source named name.vert.wgsl becomes name.vert.spv, so the
// stage suffix carries over.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"

	"github.com/andewx/timekill"
	"github.com/andewx/timekill/spirv"
)

func main() {
	outDir := flag.String("o", "", "output directory (default: next to each source)")
	check := flag.Bool("check", false, "reflect each binary and print its interface")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: shaderc [options] file.vert.wgsl ...\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, src := range flag.Args() {
		out, err := compile(src, *outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", src, err)
			failed = true
			continue
		}
		fmt.Printf("%s -> %s\n", src, out)
		if *check {
			if err := describe(out); err != nil {
				fmt.Fprintf(os.Stderr, "error: %s: %v\n", out, err)
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

func compile(src, outDir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	spv, err := naga.Compile(string(data))
	if err != nil {
		return "", err
	}

	out := strings.TrimSuffix(src, filepath.Ext(src)) + timekill.ShaderBinaryExt
	if outDir != "" {
		out = filepath.Join(outDir, filepath.Base(out))
	}
	if _, err := timekill.ClassifyShader(out); err != nil {
		return "", err
	}
	return out, os.WriteFile(out, spv, 0644)
}

func describe(path string) error {
	bin, err := timekill.LoadShaderBinary(path)
	if err != nil {
		return err
	}
	m, err := spirv.Parse(bin.Words)
	if err != nil {
		return err
	}
	entry, ok := m.EntryPointName(bin.Stage.ExecutionModel())
	if !ok {
		entry = "main (default)"
	}
	fmt.Printf("  stage %s, entry %s\n", bin.Stage, entry)
	inputs, outputs, _ := m.InterfaceOf(bin.Stage.ExecutionModel())
	for _, v := range inputs {
		if v.HasLocation {
			fmt.Printf("  in  location %d %s %v\n", v.Location, v.Name, v.Type)
		}
	}
	for _, v := range outputs {
		if v.HasLocation {
			fmt.Printf("  out location %d %s %v\n", v.Location, v.Name, v.Type)
		}
	}
	if err := spirv.CheckLocations(inputs); err != nil {
		return err
	}
	return spirv.CheckLocations(outputs)
}
