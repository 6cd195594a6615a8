// Command ngram trains and samples N-gram chain models over text. Chains
// live either in standalone codec files (JSON/YAML) or as named models in a
// SQLite or Bolt store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/halfmoss/ngram/pkg/codec"
	"github.com/halfmoss/ngram/pkg/markov"
	"github.com/halfmoss/ngram/pkg/store"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const usageText = `ngram - an N-gram chain trainer and generator

Usage:
  ngram <command> [flags] [args]

Commands:
  train     train a chain on text files (or stdin), creating or updating it
  generate  generate text from a trained chain
  stats     print aggregate statistics for a chain
  models    list the models in a store
  delete    remove a model from a store
  export    write a store model out to a chain file
  import    merge a chain file into a store model
  version   print version information

Run 'ngram <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "train":
		err = runTrain(args)
	case "generate":
		err = runGenerate(args)
	case "stats":
		err = runStats(args)
	case "models":
		err = runModels(args)
	case "delete":
		err = runDelete(args)
	case "export":
		err = runExport(args)
	case "import":
		err = runImport(args)
	case "version":
		fmt.Printf("ngram %s (%s, built %s)\n", Version, Commit, BuildDate)
	case "-h", "--help", "help":
		fmt.Print(usageText)
	default:
		fmt.Fprint(os.Stderr, usageText)
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags wires the flags shared by every subcommand and returns the
// loaded config and logger once the flag set is parsed.
type commonFlags struct {
	configPath string
	verbose    bool
}

func (c *commonFlags) addFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to a JSON config file (created with defaults if missing)")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logging")
}

func (c *commonFlags) setup() (*Config, *slog.Logger, error) {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg, c.verbose), nil
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	var common commonFlags
	var ref chainRef
	common.addFlags(fs)
	ref.addFlags(fs)
	order := fs.Int("order", 0, "chain order (defaults to the config value, or the existing chain's order)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	ref.logger = logger
	if err := ref.validate(); err != nil {
		return err
	}

	ctx := context.Background()

	tc, err := loadOrCreateText(ctx, &ref, *order, cfg.DefaultOrder)
	if err != nil {
		return err
	}
	tc.SetLogger(logger)

	inputs := fs.Args()
	windows := 0
	if len(inputs) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		windows += tc.TrainTextWindows(string(data))
	}
	for _, input := range inputs {
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("failed to read input %s: %w", input, err)
		}
		n := tc.TrainTextWindows(string(data))
		logger.Info("Input trained",
			slog.String("input", input),
			slog.Int("windows", n),
		)
		windows += n
	}

	if windows == 0 {
		logger.Warn("No context windows contributed; every sequence was shorter than the chain order",
			slog.Int("order", tc.Chain().Order()),
		)
	}

	if err := ref.save(ctx, tc.Chain().Snapshot()); err != nil {
		return err
	}

	stats := tc.Chain().Stats()
	logger.Info("Training complete",
		slog.Int("order", stats.Order),
		slog.Int("contexts", stats.Contexts),
		slog.Int("transitions", stats.Transitions),
		slog.Int("total_weight", stats.TotalWeight),
	)
	return nil
}

// loadOrCreateText loads the referenced chain for updating, or creates a new
// one when it does not exist yet. An explicit -order that contradicts an
// existing chain is an error rather than a silent retrain.
func loadOrCreateText(ctx context.Context, ref *chainRef, order, defaultOrder int) (*markov.TextChain, error) {
	snap, err := ref.load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if order == 0 {
			order = defaultOrder
		}
		return markov.NewText(order, nil)
	case err != nil:
		return nil, err
	}

	if order != 0 && order != snap.Order {
		return nil, fmt.Errorf("existing chain has order %d, but %d was requested", snap.Order, order)
	}
	return markov.NewTextFromSnapshot(snap, nil)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var common commonFlags
	var ref chainRef
	common.addFlags(fs)
	ref.addFlags(fs)
	maxLen := fs.Int("max", 0, "maximum tokens per generation (defaults to the config value)")
	count := fs.Int("count", 1, "number of sequences to generate")
	seed := fs.Uint64("seed", 0, "random seed for reproducible output (0 uses process randomness)")
	start := fs.String("start", "", "start generation from this text (must tokenize to exactly 'order' known tokens)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	ref.logger = logger
	if err := ref.validate(); err != nil {
		return err
	}

	ctx := context.Background()
	snap, err := ref.load(ctx)
	if err != nil {
		return err
	}
	tc, err := markov.NewTextFromSnapshot(snap, nil)
	if err != nil {
		return err
	}
	tc.SetLogger(logger)

	if *maxLen == 0 {
		*maxLen = cfg.MaxLength
	}
	opts := []markov.GenerateOption{markov.WithMaxLength(*maxLen)}
	if *seed != 0 {
		opts = append(opts, markov.WithRand(rand.New(rand.NewPCG(*seed, *seed))))
	}

	for i := 0; i < *count; i++ {
		var text string
		if *start != "" {
			text, err = tc.GenerateTextFrom(*start, opts...)
		} else {
			text, err = tc.GenerateText(opts...)
		}
		if err != nil {
			return err
		}
		fmt.Println(text)
	}
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var common commonFlags
	var ref chainRef
	common.addFlags(fs)
	ref.addFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, logger, err := common.setup()
	if err != nil {
		return err
	}
	ref.logger = logger
	if err := ref.validate(); err != nil {
		return err
	}

	snap, err := ref.load(context.Background())
	if err != nil {
		return err
	}
	chain, err := markov.FromSnapshot(snap)
	if err != nil {
		return err
	}

	stats := chain.Stats()
	fmt.Printf("order:          %d\n", stats.Order)
	fmt.Printf("contexts:       %d\n", stats.Contexts)
	fmt.Printf("transitions:    %d\n", stats.Transitions)
	fmt.Printf("total weight:   %d\n", stats.TotalWeight)
	fmt.Printf("start contexts: %d\n", stats.StartContexts)
	fmt.Printf("vocabulary:     %d\n", stats.VocabSize)
	return nil
}

func runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	var common commonFlags
	common.addFlags(fs)
	dbPath := fs.String("db", "", "path to a model store")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	if *dbPath == "" {
		*dbPath = cfg.DatabasePath
	}

	s, err := openStore(*dbPath, logger)
	if err != nil {
		return err
	}
	defer func(s store.Store) {
		_ = s.Close()
	}(s)

	models, err := s.List(context.Background())
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("no models")
		return nil
	}
	for _, m := range models {
		fmt.Printf("%s (order %d)\n", m.Name, m.Order)
	}
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	var common commonFlags
	common.addFlags(fs)
	dbPath := fs.String("db", "", "path to a model store")
	model := fs.String("model", "", "model name to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, logger, err := common.setup()
	if err != nil {
		return err
	}
	if *dbPath == "" || *model == "" {
		return errors.New("delete requires -db and -model")
	}

	s, err := openStore(*dbPath, logger)
	if err != nil {
		return err
	}
	defer func(s store.Store) {
		_ = s.Close()
	}(s)
	return s.Delete(context.Background(), *model)
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var common commonFlags
	common.addFlags(fs)
	dbPath := fs.String("db", "", "path to a model store")
	model := fs.String("model", "", "model name to export")
	out := fs.String("o", "", "output chain file (codec chosen by extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, logger, err := common.setup()
	if err != nil {
		return err
	}
	if *dbPath == "" || *model == "" || *out == "" {
		return errors.New("export requires -db, -model, and -o")
	}

	s, err := openStore(*dbPath, logger)
	if err != nil {
		return err
	}
	defer func(s store.Store) {
		_ = s.Close()
	}(s)

	snap, err := s.Load(context.Background(), *model)
	if err != nil {
		return err
	}
	if err := codec.SaveFile(*out, snap); err != nil {
		return err
	}
	logger.Info("Model exported",
		slog.String("model_name", *model),
		slog.String("path", *out),
	)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	var common commonFlags
	common.addFlags(fs)
	dbPath := fs.String("db", "", "path to a model store")
	model := fs.String("model", "", "target model name")
	in := fs.String("chain", "", "chain file to import (codec chosen by extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, logger, err := common.setup()
	if err != nil {
		return err
	}
	if *dbPath == "" || *model == "" || *in == "" {
		return errors.New("import requires -db, -model, and -chain")
	}

	ctx := context.Background()
	snap, err := codec.LoadFile[string](*in)
	if err != nil {
		return err
	}

	s, err := openStore(*dbPath, logger)
	if err != nil {
		return err
	}
	defer func(s store.Store) {
		_ = s.Close()
	}(s)

	// Importing into an existing model merges weights rather than replacing.
	existing, err := s.Load(ctx, *model)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	default:
		target, err := markov.FromSnapshot(existing)
		if err != nil {
			return err
		}
		imported, err := markov.FromSnapshot(snap)
		if err != nil {
			return err
		}
		if err := target.Merge(imported); err != nil {
			return err
		}
		snap = target.Snapshot()
	}

	if err := s.Save(ctx, *model, snap); err != nil {
		return err
	}
	logger.Info("Model imported",
		slog.String("model_name", *model),
		slog.String("path", *in),
		slog.Int("transitions", len(snap.Transitions)),
	)
	return nil
}
