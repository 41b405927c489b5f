package main

import (
	"flag"
	"fmt"

	"github.com/eischet/janitor-sub000/gowrap"
	"github.com/eischet/janitor-sub000/manifest"
)

// wrapCommand generates wrapper tables. Usage:
//
//	janitor wrap                      # all packages from janitor.toml
//	janitor wrap net/url              # single package, every struct type
//	janitor wrap -o ./wrappers net/url
func (a *app) wrapCommand(args []string) int {
	fs := flag.NewFlagSet("wrap", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	output := fs.String("o", "", "Output directory (default go-wrap.output)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var targets []manifest.WrapPackage
	for _, pkg := range fs.Args() {
		targets = append(targets, manifest.WrapPackage{Import: pkg})
	}
	if len(targets) == 0 {
		if !a.project {
			fmt.Fprintln(a.stderr, "Error: no janitor.toml found and no packages specified")
			return 2
		}
		targets = a.manifest.GoWrap.Packages
		if len(targets) == 0 {
			fmt.Fprintln(a.stderr, "No [[go-wrap.packages]] configured in janitor.toml")
			return 1
		}
	}
	dir := *output
	if dir == "" {
		dir = a.manifest.WrapperDir()
	}

	for _, target := range targets {
		if err := a.wrapPackage(target, dir); err != nil {
			fmt.Fprintf(a.stderr, "Error wrapping %s: %v\n", target.Import, err)
			return 1
		}
	}
	return 0
}

func (a *app) wrapPackage(target manifest.WrapPackage, dir string) error {
	model, err := gowrap.Introspect(target.Import, target.Include)
	if err != nil {
		return fmt.Errorf("introspecting: %w", err)
	}
	for _, t := range model.Types {
		if manifest.IsReservedName(t.Name) {
			return fmt.Errorf("type %s would shadow a builtin", t.Name)
		}
	}
	for _, s := range model.Skipped {
		log.Infof("%s: skipped %s", target.Import, s)
	}
	path, err := gowrap.Write(dir, model)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrapped %d type(s) of %s into %s\n", len(model.Types), target.Import, path)
	return nil
}
