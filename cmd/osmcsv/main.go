package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"github.com/omniscale/osmcsv"
	"github.com/omniscale/osmcsv/config"
	"github.com/omniscale/osmcsv/database/postgres"
	"github.com/omniscale/osmcsv/logging"
	"github.com/omniscale/osmcsv/process"
	"github.com/omniscale/osmcsv/stats"
	"github.com/omniscale/osmcsv/validate"
)

var log = logging.NewLogger("")

func PrintCmds() {
	fmt.Fprintf(os.Stderr, "Usage: %s COMMAND [args]\n\n", os.Args[0])
	fmt.Println("Available commands:")
	fmt.Println("\tconvert")
	fmt.Println("\tload")
	fmt.Println("\tversion")
}

func Main(usage func()) {
	if len(os.Args) <= 1 {
		usage()
		logging.Shutdown()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "convert":
		opts, err := config.ParseConvert(os.Args[2:])
		exitOnOptionsError(err)
		if opts.Base.Httpprofile != "" {
			stats.StartHttpPProf(opts.Base.Httpprofile)
		}
		convert(ctx, opts)
	case "load":
		opts, err := config.ParseLoad(os.Args[2:])
		exitOnOptionsError(err)
		if opts.Base.Httpprofile != "" {
			stats.StartHttpPProf(opts.Base.Httpprofile)
		}
		load(ctx, opts)
	case "version":
		fmt.Println(osmcsv.Version)
		os.Exit(0)
	default:
		usage()
		log.Fatalf("invalid command: '%s'", os.Args[1])
	}
	logging.Shutdown()
	os.Exit(0)
}

func exitOnOptionsError(err error) {
	if err == nil {
		return
	}
	if err == flag.ErrHelp {
		logging.Shutdown()
		os.Exit(2)
	}
	log.Fatal(err)
}

func convert(ctx context.Context, opts *config.ConvertOptions) {
	logging.SetQuiet(opts.Base.Quiet)

	var validator validate.Validator
	if opts.Validate && opts.ValidationSchema != "" {
		f, err := os.Open(opts.ValidationSchema)
		if err != nil {
			log.Fatal(err)
		}
		schema, err := validate.LoadSchema(f)
		f.Close()
		if err != nil {
			log.Fatal(errors.Wrapf(err, "loading %s", opts.ValidationSchema))
		}
		validator = validate.NewSchemaValidator(schema)
	}

	step := log.StartStep(fmt.Sprintf("Converting %s", opts.Input))
	counts, err := process.Run(ctx, process.Options{
		Input:           opts.Input,
		Validate:        opts.Validate,
		Validator:       validator,
		OutDir:          opts.Base.OutDir,
		Names:           opts.Base.Names,
		StreetCacheSize: opts.StreetCacheSize,
		Quiet:           opts.Base.Quiet,
	})
	log.StopStep(step)
	log.Printf("%s", counts)
	if err != nil {
		log.Fatal(err)
	}
}

func load(ctx context.Context, opts *config.LoadOptions) {
	loader, err := postgres.New(postgres.Config{
		ConnectionParams: opts.Connection,
		Schema:           opts.Schema,
		Truncate:         opts.Truncate,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	step := log.StartStep(fmt.Sprintf("Loading %s into schema %s", opts.Base.OutDir, loader.Schema))
	rows, err := loader.Load(ctx, opts.Base.OutDir, opts.Base.Names)
	log.StopStep(step)
	if err != nil {
		loader.Close()
		log.Fatal(err)
	}
	for _, table := range opts.Base.Names.Tables() {
		log.Printf("%s: %d rows", table.Name, rows[table.Name])
	}
}

func main() {
	Main(PrintCmds)
}
