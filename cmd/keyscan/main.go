// keyscan explains how filters over a record kind compile into key and index
// scan ranges, and runs them against a Pebble or Badger directory.
//
//	keyscan explain --field Number:uint32 --field Time:datetime --field Name:string:unique \
//	    --field ID:uuid:identity --key "Number @uuid7" --index "-Time Number" \
//	    --use-index "-Time Number" --where "Number = 5 AND Time > '2024-05-01T00:00:00Z'"
//	keyscan scan --backend pebble --dir data ... --where "Name LIKE 'Ja%'"
//	keyscan shell --dir data ...
//	keyscan pretty < service.log
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/run"
	"github.com/ridge/keystone/sqlfilter"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/store/badgerstore"
	"github.com/ridge/keystone/store/pebblestore"
	"github.com/ridge/keystone/tlog/formatter"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

type options struct {
	table    string
	fields   []string
	key      string
	indexes  []string
	where    string
	useIndex string
	start    string
	desc     bool
	limit    int
	parallel bool
	backend  string
	dir      string
}

var opts options

func init() {
	pflag.StringVar(&opts.table, "table", "record", "Table name of the record kind")
	pflag.StringArrayVar(&opts.fields, "field", nil, "Record field as Name:type[:unique|identity|required], repeatable")
	pflag.StringVar(&opts.key, "key", "", "Primary key definition, e.g. \"Number -Time @uuid7\"")
	pflag.StringArrayVar(&opts.indexes, "index", nil, "Secondary index definition, repeatable")
	pflag.StringVar(&opts.where, "where", "", "Filter as a SQL WHERE clause")
	pflag.StringVar(&opts.useIndex, "use-index", "", "Index to scan instead of the primary key")
	pflag.StringVar(&opts.start, "start", "", "Hex primary key to resume the scan from (inclusive)")
	pflag.BoolVar(&opts.desc, "desc", false, "Scan in descending order")
	pflag.IntVar(&opts.limit, "limit", 0, "Maximum number of records to return")
	pflag.BoolVar(&opts.parallel, "parallel", false, "Scan ranges concurrently")
	pflag.StringVar(&opts.backend, "backend", "pebble", "Storage backend (pebble|badger)")
	pflag.StringVar(&opts.dir, "dir", "", "Database directory")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s explain|scan|shell|pretty [flags]\n", os.Args[0])
		pflag.PrintDefaults()
	}
}

var errUsage = errors.New("usage")

func main() {
	pflag.Parse()
	run.Tool(func(ctx context.Context) error {
		err := command(ctx, pflag.Arg(0))
		if errors.Is(err, errUsage) {
			pflag.Usage()
			return run.ExitCode(2, err)
		}
		return err
	})
}

func command(ctx context.Context, name string) error {
	switch name {
	case "pretty":
		return formatter.Stream(os.Stdin, os.Stdout, term.IsTerminal(unix.Stdout))
	case "explain", "scan", "shell":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	kind, err := kindOf(opts.table, opts.fields, opts.key, opts.indexes)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if name == "explain" {
		req, err := opts.request(kind, opts.where)
		if err != nil {
			return err
		}
		return explain(ctx, kind, req)
	}

	s, err := openStore(ctx, opts.backend, opts.dir, kind)
	if err != nil {
		return err
	}
	defer s.Close()

	if name == "shell" {
		return newShell(kind, s).run(ctx)
	}
	req, err := opts.request(kind, opts.where)
	if err != nil {
		return err
	}
	return scan(ctx, kind, s, req, os.Stdout)
}

// request builds a scan request for a WHERE clause
func (o options) request(kind *model.Kind, where string) (store.Request, error) {
	f, err := sqlfilter.Parse(kind.Struct, where)
	if err != nil {
		return store.Request{}, err
	}
	if err := filter.Validate(f); err != nil {
		return store.Request{}, err
	}
	req := store.Request{
		Filter:     f,
		Index:      o.useIndex,
		Descending: o.desc,
		Limit:      o.limit,
		Parallel:   o.parallel,
	}
	if o.start != "" {
		if req.StartKey, err = parseHex(o.start); err != nil {
			return store.Request{}, fmt.Errorf("--start: %w", err)
		}
		req.IncludeStart = true
	}
	return req, nil
}

func openStore(ctx context.Context, backend, dir string, kind *model.Kind) (store.Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: --dir is required", errUsage)
	}
	kinds := []*model.Kind{kind}
	switch backend {
	case "pebble":
		return pebblestore.Open(ctx, dir, kinds)
	case "badger":
		return badgerstore.Open(ctx, dir, kinds)
	}
	return nil, fmt.Errorf("%w: unknown backend %q", errUsage, backend)
}
