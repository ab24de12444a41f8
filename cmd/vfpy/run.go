package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/reglet-dev/vfpython/application/config"
	"github.com/reglet-dev/vfpython/application/filter"
	"github.com/reglet-dev/vfpython/domain/entities"
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
)

// exitInterrupted is the conventional status after SIGINT.
const exitInterrupted = 130

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfgSrc := fs.String("c", "", "filter configuration: file or option string")
	inPath := fs.String("i", "-", "input raw video, - for stdin")
	outPath := fs.String("o", "-", "output raw video, - for stdout")
	size := fs.String("s", "", "input frame size WxH")
	pixfmt := fs.String("f", "rgb24", "input pixel format")
	var lf logFlags
	fs.StringVar(&lf.level, "log-level", "", "log level, overrides the configuration")
	fs.StringVar(&lf.format, "log-format", "text", "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *cfgSrc == "" || *size == "" {
		fmt.Fprintf(os.Stderr, "usage: %s run -c <config> -s WxH [-f pixfmt] [-i in.raw] [-o out.raw]\n", appName)
		return 2
	}

	width, height, err := parseSize(*size)
	if err != nil {
		return lf.fail(err)
	}
	cfg, err := config.Load(*cfgSrc)
	if err != nil {
		return lf.fail(err)
	}
	logger, err := lf.logger(cfg.LogLevel)
	if err != nil {
		return lf.fail(err)
	}

	in, closeIn, err := openInput(*inPath)
	if err != nil {
		return lf.fail(err)
	}
	defer closeIn()
	out, closeOut, err := openOutput(*outPath)
	if err != nil {
		return lf.fail(err)
	}

	f, err := filter.New(context.Background(), *cfg, filter.WithLogger(logger))
	if err != nil {
		closeOut()
		return lf.fail(err)
	}
	defer f.Close()

	ctx, stop := f.Runtime().Router().NotifyContext(context.Background())
	defer stop()

	n, err := runPipeline(ctx, f, *pixfmt, width, height, in, out, logger)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, domainerrors.ErrInterrupted):
		logger.Info("stopped by interrupt", "frames", n)
		return exitInterrupted
	case err != nil:
		logger.Error("pipeline failed", "frames", n, "error", err)
		return 1
	}
	logger.Info("done", "frames", n)
	return 0
}

// runPipeline reads frames from r, filters them and writes the results to w.
// It returns the number of frames written.
func runPipeline(ctx context.Context, f *filter.Filter, pixfmt string, width, height int, r io.Reader, w io.Writer, logger *slog.Logger) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cat := f.Runtime().Catalog()
	desc, ok := cat.ByName(pixfmt)
	if !ok {
		return 0, fmt.Errorf("unknown pixel format %q", pixfmt)
	}
	supported, err := f.QueryFormats(ctx)
	if err != nil {
		return 0, err
	}
	if !supported.Contains(desc.ID) {
		return 0, fmt.Errorf("filter does not accept %s, supported: %s", desc.Name, formatNames(cat, supported))
	}
	outW, outH := f.ConfigOutput(width, height)
	logger.Info("pipeline configured", "format", desc.Name, "in", fmt.Sprintf("%dx%d", width, height), "out", fmt.Sprintf("%dx%d", outW, outH))

	g, ctx := errgroup.WithContext(ctx)
	inputs := make(chan *entities.Frame, 1)
	outputs := make(chan *entities.Frame, 1)
	alloc := f.Allocator()

	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	g.Go(func() error {
		defer close(inputs)
		for pts := int64(0); ; pts++ {
			frame, err := alloc.Allocate(desc, width, height)
			if err != nil {
				return err
			}
			if err := readFrame(r, desc, frame); err != nil {
				_ = f.Release(frame)
				if errors.Is(err, io.EOF) {
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			frame.PTS = pts
			select {
			case inputs <- frame:
			case <-ctx.Done():
				_ = f.Release(frame)
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		defer close(outputs)
		for in := range inputs {
			out, err := f.FilterFrame(ctx, in)
			_ = f.Release(in)
			if err != nil {
				return fmt.Errorf("frame %d: %w", in.PTS, err)
			}
			select {
			case outputs <- out:
			case <-ctx.Done():
				_ = f.Release(out)
				return ctx.Err()
			}
		}
		return nil
	})

	written := 0
	g.Go(func() error {
		for out := range outputs {
			err := writeFrame(w, desc, out)
			_ = f.Release(out)
			if err != nil {
				return fmt.Errorf("write frame %d: %w", out.PTS, err)
			}
			written++
		}
		return nil
	})

	err = g.Wait()
	for frame := range inputs {
		_ = f.Release(frame)
	}
	for frame := range outputs {
		_ = f.Release(frame)
	}
	return written, err
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}
