// Package config turns user input into a validated entities.FilterConfig.
// Input is either an option string in the filter-graph style
// ("pylib=/usr/lib/libpython3.12.so:script=f.py:class=Invert") or a YAML, TOML
// or JSON file.
package config

import (
	stdErrors "errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/infrastructure/parser"
)

// validate is shared by every call.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseOptions parses a key=value list separated by ':'. A literal ':' or '\'
// inside a value is written as '\:' or '\\'. Search paths are separated by ','.
func ParseOptions(s string) (*entities.FilterConfig, error) {
	cfg := &entities.FilterConfig{}
	for _, pair := range splitEscaped(s, ':') {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, &errors.ConfigError{Field: key, Err: fmt.Errorf("missing '=' in %q", pair)}
		}
		if err := set(cfg, strings.TrimSpace(key), value); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFile reads a configuration file; the parser is picked by extension.
func LoadFile(path string) (*entities.FilterConfig, error) {
	p, err := parser.ForPath(path)
	if err != nil {
		return nil, &errors.ConfigError{Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	cfg, err := p.Parse(data)
	if err != nil {
		return nil, &errors.ConfigError{Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return cfg, nil
}

// Load accepts either a file path or an option string, applies defaults and
// validates the result.
func Load(source string) (*entities.FilterConfig, error) {
	var (
		cfg *entities.FilterConfig
		err error
	)
	if isFile(source) {
		cfg, err = LoadFile(source)
	} else {
		cfg, err = ParseOptions(source)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs the struct validation tags. The first failing field is
// reported by its option key.
func Validate(cfg *entities.FilterConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errors.ConfigError{Field: fe.Field(), Err: describe(fe)}
	}
	return &errors.ConfigError{Err: err}
}

func describe(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("value is required")
	case "oneof":
		return fmt.Errorf("%v is not one of [%s]", fe.Value(), fe.Param())
	case "gte":
		return fmt.Errorf("%v is below %s", fe.Value(), fe.Param())
	default:
		return fmt.Errorf("failed %q check", fe.Tag())
	}
}

func isFile(source string) bool {
	if strings.Contains(source, "=") {
		return false
	}
	st, err := os.Stat(source)
	return err == nil && st.Mode().IsRegular()
}

func set(cfg *entities.FilterConfig, key, value string) error {
	switch key {
	case "pylib":
		cfg.Library = value
	case "script":
		cfg.Script = value
	case "class":
		cfg.Class = value
	case "init_arg":
		cfg.InitArg = value
	case "home":
		cfg.Home = value
	case "search_paths":
		cfg.SearchPaths = nil
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.SearchPaths = append(cfg.SearchPaths, p)
			}
		}
	case "default_format":
		cfg.DefaultFormat = value
	case "allocator":
		cfg.Allocator = value
	case "log_level":
		cfg.LogLevel = value
	case "out_w", "out_h":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &errors.ConfigError{Field: key, Err: fmt.Errorf("not an integer: %q", value)}
		}
		if key == "out_w" {
			cfg.OutWidth = n
		} else {
			cfg.OutHeight = n
		}
	case "scale":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &errors.ConfigError{Field: key, Err: fmt.Errorf("not a number: %q", value)}
		}
		cfg.Scale = f
	default:
		return &errors.ConfigError{Field: key, Err: fmt.Errorf("unknown option")}
	}
	return nil
}

func splitEscaped(s string, sep byte) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}
