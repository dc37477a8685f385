package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/omniscale/osmcsv/cleaning"
	"github.com/omniscale/osmcsv/writer"
)

// Config is the content of a YAML config file. Options from the command
// line override the values of the file.
type Config struct {
	OutDir           string       `yaml:"outdir"`
	Connection       string       `yaml:"connection"`
	Schema           string       `yaml:"schema"`
	Files            writer.Names `yaml:"files"`
	ValidationSchema string       `yaml:"validation_schema"`
	StreetCacheSize  int          `yaml:"street_cache_size"`
}

const defaultOutDir = "csv"

// ConnectionEnv is the environment variable with the default connection
// of the load command. It is also read from .env in the working directory.
const ConnectionEnv = "OSMCSV_CONNECTION"

type BaseOptions struct {
	ConfigFile  string
	OutDir      string
	Names       writer.Names
	Httpprofile string
	Quiet       bool
}

type ConvertOptions struct {
	Base             BaseOptions
	Input            string
	Validate         bool
	ValidationSchema string
	StreetCacheSize  int
}

type LoadOptions struct {
	Base       BaseOptions
	Connection string
	Schema     string
	Truncate   bool
}

// Errors are all problems found in the options.
type Errors []error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, "\t"+err.Error())
	}
	return "errors in config/options:\n" + strings.Join(msgs, "\n")
}

func addBaseFlags(opts *BaseOptions, flags *flag.FlagSet) {
	flags.StringVar(&opts.ConfigFile, "config", "", "config (yaml)")
	flags.StringVarP(&opts.OutDir, "outdir", "o", defaultOutDir, "directory of the CSV files")
	flags.StringVar(&opts.Httpprofile, "httpprofile", "", "bind address for profile and metrics server")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "quiet log output")
}

func convertFlags(opts *ConvertOptions) *flag.FlagSet {
	flags := flag.NewFlagSet("convert", flag.ContinueOnError)
	addBaseFlags(&opts.Base, flags)
	flags.StringVarP(&opts.Input, "input", "i", "", "OSM file (.osm, .osm.gz, .osm.bz2, .pbf)")
	flags.BoolVar(&opts.Validate, "validate", false, "validate shaped elements before writing")
	flags.StringVar(&opts.ValidationSchema, "validation-schema", "", "JSON Schema (yaml or json) for --validate, built-in schema if empty")
	flags.IntVar(&opts.StreetCacheSize, "street-cache", cleaning.DefaultStreetCacheSize, "number of cached street name rewrites")
	return flags
}

func loadFlags(opts *LoadOptions) *flag.FlagSet {
	flags := flag.NewFlagSet("load", flag.ContinueOnError)
	addBaseFlags(&opts.Base, flags)
	flags.StringVar(&opts.Connection, "connection", "", "connection parameters, defaults to $"+ConnectionEnv)
	flags.StringVar(&opts.Schema, "schema", "", "database schema")
	flags.BoolVar(&opts.Truncate, "truncate", false, "remove existing rows before loading")
	return flags
}

func usage(flags *flag.FlagSet, args string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s %s\n\n", os.Args[0], flags.Name(), args)
		flags.PrintDefaults()
	}
}

// ParseConvert parses the arguments of the convert command.
func ParseConvert(args []string) (*ConvertOptions, error) {
	opts := &ConvertOptions{}
	flags := convertFlags(opts)
	flags.Usage = usage(flags, "--input file.osm [args]")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	conf, err := opts.Base.updateFromConfig(flags)
	if err != nil {
		return nil, err
	}
	if !flags.Changed("validation-schema") && conf.ValidationSchema != "" {
		opts.ValidationSchema = conf.ValidationSchema
	}
	if !flags.Changed("street-cache") && conf.StreetCacheSize != 0 {
		opts.StreetCacheSize = conf.StreetCacheSize
	}

	errs := opts.Base.check(flags)
	if opts.Input == "" {
		errs = append(errs, errors.New("missing input"))
	}
	if len(errs) != 0 {
		return nil, errs
	}
	return opts, nil
}

// ParseLoad parses the arguments of the load command. The connection falls
// back to the config file and then to ConnectionEnv.
func ParseLoad(args []string) (*LoadOptions, error) {
	opts := &LoadOptions{}
	flags := loadFlags(opts)
	flags.Usage = usage(flags, "--connection postgres://... [args]")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	conf, err := opts.Base.updateFromConfig(flags)
	if err != nil {
		return nil, err
	}
	if opts.Schema == "" {
		opts.Schema = conf.Schema
	}
	if opts.Connection == "" {
		opts.Connection = conf.Connection
	}
	if opts.Connection == "" {
		if err := loadDotEnv(); err != nil {
			return nil, err
		}
		opts.Connection = os.Getenv(ConnectionEnv)
	}

	errs := opts.Base.check(flags)
	if opts.Connection == "" {
		errs = append(errs, errors.Errorf("missing connection, set --connection or $%s", ConnectionEnv))
	}
	if len(errs) != 0 {
		return nil, errs
	}
	return opts, nil
}

// updateFromConfig reads the config file and sets all options that are
// not set on the command line.
func (o *BaseOptions) updateFromConfig(flags *flag.FlagSet) (*Config, error) {
	conf := &Config{}
	if o.ConfigFile != "" {
		var err error
		conf, err = LoadConfig(o.ConfigFile)
		if err != nil {
			return nil, err
		}
	}

	if !flags.Changed("outdir") && conf.OutDir != "" {
		o.OutDir = conf.OutDir
	}
	o.Names = conf.Files.WithDefaults()
	return conf, nil
}

func (o *BaseOptions) check(flags *flag.FlagSet) Errors {
	errs := Errors{}
	if o.OutDir == "" {
		errs = append(errs, errors.New("missing outdir"))
	}
	if flags.NArg() != 0 {
		errs = append(errs, errors.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " ")))
	}
	return errs
}

// LoadConfig reads a YAML config file. Unknown keys are an error.
func LoadConfig(fname string) (*Config, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	conf := &Config{}
	if err := yaml.UnmarshalStrict(b, conf); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", fname)
	}
	return conf, nil
}

// loadDotEnv sets environment variables from .env and .env.local, if
// present. Existing variables are not overwritten.
func loadDotEnv() error {
	for _, fname := range []string{".env", ".env.local"} {
		if _, err := os.Stat(fname); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(fname); err != nil {
			return errors.Wrapf(err, "loading %s", fname)
		}
	}
	return nil
}
