package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/reglet-dev/vfpython/application/config"
	"github.com/reglet-dev/vfpython/application/filter"
	"github.com/reglet-dev/vfpython/application/schema"
	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/infrastructure/catalog"
)

func cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	cfgSrc := fs.String("c", "", "filter configuration: file or option string")
	size := fs.String("s", "", "input frame size WxH, prints the output size")
	var lf logFlags
	fs.StringVar(&lf.level, "log-level", "", "log level, overrides the configuration")
	fs.StringVar(&lf.format, "log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *cfgSrc == "" {
		fmt.Fprintf(os.Stderr, "usage: %s check -c <config> [-s WxH]\n", appName)
		return 2
	}

	cfg, err := config.Load(*cfgSrc)
	if err != nil {
		return lf.fail(err)
	}
	logger, err := lf.logger(cfg.LogLevel)
	if err != nil {
		return lf.fail(err)
	}

	ctx := context.Background()
	f, err := filter.New(ctx, *cfg, filter.WithLogger(logger))
	if err != nil {
		return lf.fail(err)
	}
	defer f.Close()

	list, err := f.QueryFormats(ctx)
	if err != nil {
		return lf.fail(err)
	}
	fmt.Printf("class:   %s\n", cfg.Class)
	fmt.Printf("script:  %s\n", cfg.Script)
	fmt.Printf("formats: %s\n", formatNames(f.Runtime().Catalog(), list))
	if *size != "" {
		w, h, err := parseSize(*size)
		if err != nil {
			return lf.fail(err)
		}
		ow, oh := f.ConfigOutput(w, h)
		fmt.Printf("output:  %dx%d\n", ow, oh)
	}
	return 0
}

// formatNames renders a format list by name, falling back to the identifier.
func formatNames(cat ports.FormatCatalog, list entities.FormatList) string {
	names := make([]string, 0, len(list))
	for _, id := range list.Formats() {
		if d, ok := cat.Descriptor(id); ok {
			names = append(names, d.Name)
			continue
		}
		names = append(names, fmt.Sprintf("%d", id))
	}
	return strings.Join(names, ",")
}

func cmdFormats(_ []string) int {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPLANES\tBITS\tCHROMA")
	for _, d := range catalog.Default().List() {
		bits := make([]string, 0, d.Planes)
		for i := 0; i < d.Planes; i++ {
			bits = append(bits, fmt.Sprintf("%d", d.BitsPerPixel[i]))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d:%d\n", d.ID, d.Name, d.Planes, strings.Join(bits, "/"), d.Log2ChromaW, d.Log2ChromaH)
	}
	if err := tw.Flush(); err != nil {
		return fail(err)
	}
	return 0
}

func cmdSchema(_ []string) int {
	out, err := schema.FilterConfigSchema()
	if err != nil {
		return fail(err)
	}
	fmt.Println(string(out))
	return 0
}
