package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/store"
)

const shellHelp = `Enter a WHERE clause to scan matching records, or a command:
  \put {json}       write a record
  \delete HEX       delete the record with a primary key
  \explain WHERE    show the plan of a filter without scanning
  \index [NAME]     scan an index, or the primary key without NAME
  \desc             toggle descending order
  \limit N          return at most N records, 0 for no limit
  \help             show this help
  \q                quit
`

// shell reads filters and commands interactively
type shell struct {
	kind    *model.Kind
	store   store.Store
	opts    options
	history string
	out     io.Writer
}

func newShell(kind *model.Kind, s store.Store) *shell {
	sh := &shell{kind: kind, store: s, opts: opts, out: os.Stdout}
	if home, err := os.UserHomeDir(); err == nil {
		sh.history = filepath.Join(home, ".keyscan_history")
	}
	return sh
}

func (sh *shell) run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(sh.complete)
	sh.loadHistory(line)
	defer sh.saveHistory(line)

	fmt.Fprintf(sh.out, "keyscan on %s, \\help for help\n", sh.kind)
	for {
		input, err := line.Prompt(sh.kind.DBName + "> ")
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := sh.execute(ctx, input)
		if err != nil {
			fmt.Fprintln(sh.out, "error:", err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

// execute runs one input line. Returns true to quit.
func (sh *shell) execute(ctx context.Context, input string) (bool, error) {
	if !strings.HasPrefix(input, `\`) {
		req, err := sh.opts.request(sh.kind, strings.TrimSuffix(input, ";"))
		if err != nil {
			return false, err
		}
		return false, scan(ctx, sh.kind, sh.store, req, sh.out)
	}

	cmd, arg, _ := strings.Cut(input[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "q", "quit":
		return true, nil
	case "help":
		fmt.Fprint(sh.out, shellHelp)
	case "put":
		ptr := sh.kind.New()
		if err := json.Unmarshal([]byte(arg), ptr); err != nil {
			return false, err
		}
		key, err := sh.store.Put(ctx, ptr)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(sh.out, hex.EncodeToString(key))
	case "delete":
		key, err := parseHex(arg)
		if err != nil {
			return false, err
		}
		return false, sh.store.Delete(ctx, sh.kind, key)
	case "explain":
		req, err := sh.opts.request(sh.kind, arg)
		if err != nil {
			return false, err
		}
		return false, explain(ctx, sh.kind, req)
	case "index":
		if arg != "" {
			if _, ok := sh.kind.Index(arg); !ok {
				return false, fmt.Errorf("%w %q, indexes: %s", model.ErrUnknownIndex, arg, strings.Join(sh.kind.IndexNames(), ", "))
			}
		}
		sh.opts.useIndex = arg
	case "desc":
		sh.opts.desc = !sh.opts.desc
		fmt.Fprintln(sh.out, "descending:", sh.opts.desc)
	case "limit":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return false, fmt.Errorf("invalid limit %q", arg)
		}
		sh.opts.limit = n
	default:
		return false, fmt.Errorf("unknown command %q, try \\help", cmd)
	}
	return false, nil
}

// complete suggests field names for the last word of the line
func (sh *shell) complete(line string) []string {
	start := strings.LastIndexAny(line, " (") + 1
	word := line[start:]
	if word == "" {
		return nil
	}
	var res []string
	for _, f := range sh.kind.Fields {
		if strings.HasPrefix(f.GoName, word) {
			res = append(res, line[:start]+f.GoName)
		}
	}
	return res
}

func (sh *shell) loadHistory(line *liner.State) {
	if sh.history == "" {
		return
	}
	f, err := os.Open(sh.history)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.ReadHistory(f)
}

func (sh *shell) saveHistory(line *liner.State) {
	if sh.history == "" {
		return
	}
	f, err := os.Create(sh.history)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}
