// Package config loads roamwatch settings from an optional CUE file.
//
// The file is unified with an embedded schema that constrains every field
// and supplies its default, so an empty file (or no file) yields Default().
// Command-line flags are layered on top by the CLI.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Adapter names accepted by the adapter field.
const (
	AdapterWindows = "windows"
	AdapterSim     = "sim"
)

// Config is the resolved configuration.
type Config struct {
	Adapter          string
	SimScript        string
	PollInterval     time.Duration
	IngressBuffer    int
	SubscriberBuffer int
	StaleAfter       time.Duration
	ScanTimeout      time.Duration
	CaptureDB        string
	MetricsListen    string
}

// fileConfig mirrors #Config field for field.
type fileConfig struct {
	Adapter          string `json:"adapter"`
	SimScript        string `json:"simScript"`
	PollInterval     string `json:"pollInterval"`
	IngressBuffer    int    `json:"ingressBuffer"`
	SubscriberBuffer int    `json:"subscriberBuffer"`
	StaleAfter       string `json:"staleAfter"`
	ScanTimeout      string `json:"scanTimeout"`
	CaptureDB        string `json:"captureDB"`
	MetricsListen    string `json:"metricsListen"`
}

// Error reports an invalid configuration, with the CUE position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the schema defaults.
func Default() Config {
	c, err := Parse(nil, "")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return c
}

// Load reads and resolves the CUE file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse resolves CUE source against the schema. filename is used for error
// positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def
	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return Config{}, formatCUEError(err)
		}
		v = def.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var fc fileConfig
	if err := v.Decode(&fc); err != nil {
		return Config{}, formatCUEError(err)
	}

	c, err := fc.resolve()
	if err != nil {
		return Config{}, err
	}
	// Cross-field rules wait for Validate: flags may still supply the
	// missing half.
	if err := c.validateFields(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (fc fileConfig) resolve() (Config, error) {
	c := Config{
		Adapter:          fc.Adapter,
		SimScript:        fc.SimScript,
		IngressBuffer:    fc.IngressBuffer,
		SubscriberBuffer: fc.SubscriberBuffer,
		CaptureDB:        fc.CaptureDB,
		MetricsListen:    fc.MetricsListen,
	}

	durations := []struct {
		field string
		src   string
		dst   *time.Duration
	}{
		{"pollInterval", fc.PollInterval, &c.PollInterval},
		{"staleAfter", fc.StaleAfter, &c.StaleAfter},
		{"scanTimeout", fc.ScanTimeout, &c.ScanTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return Config{}, &Error{Field: d.field, Message: err.Error()}
		}
		*d.dst = v
	}
	return c, nil
}

// Validate checks the resolved configuration once flags are layered over
// the file, including rules that span fields.
func (c Config) Validate() error {
	if err := c.validateFields(); err != nil {
		return err
	}
	if c.Adapter == AdapterSim && c.SimScript == "" {
		return &Error{Field: "simScript", Message: "required when adapter is \"sim\""}
	}
	return nil
}

func (c Config) validateFields() error {
	switch c.Adapter {
	case AdapterWindows, AdapterSim:
	default:
		return &Error{Field: "adapter", Message: fmt.Sprintf("unknown adapter %q", c.Adapter)}
	}
	if c.PollInterval <= 0 {
		return &Error{Field: "pollInterval", Message: "must be positive"}
	}
	if c.ScanTimeout <= 0 {
		return &Error{Field: "scanTimeout", Message: "must be positive"}
	}
	if c.StaleAfter < 0 {
		return &Error{Field: "staleAfter", Message: "must not be negative"}
	}
	if c.IngressBuffer <= 0 || c.SubscriberBuffer <= 0 {
		return &Error{Field: "buffers", Message: "must be positive"}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "config"
	if path := first.Path(); len(path) > 0 {
		field = path[len(path)-1]
	}
	msg, args := first.Msg()
	e := &Error{Field: field, Message: fmt.Sprintf(msg, args...)}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
