package repl

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"github.com/zoreu/tabledb/internal/registry"
	"github.com/zoreu/tabledb/internal/table"
)

const helpText = `commands:
  create <table> <field,field,...> <indexed_field> [cache_capacity]
  use <table>
  ls                          list tables
  drop <table>
  insert <json>               insert a record into the current table
  get <value>                 search by the indexed field
  set <value> <json>          update the record addressed by <value>
  del <value>                 delete the record addressed by <value>
  scan [page] [per_page]      list records
  find <field> <substr>       substring search on a declared field
  stats                       lookup cache counters
  exit | \q                   quit`

// Start runs the interactive shell until the user exits.
func Start(reg *registry.Registry, defaultCapacity int) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tabledb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Println("Welcome to tabledb")
	fmt.Println("Type 'help' for commands, 'exit' or '\\q' to quit.")

	sess := &session{registry: reg, defaultCapacity: defaultCapacity, out: rl.Stdout()}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			// EOF
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "\\q" {
			return nil
		}
		if line == "help" {
			fmt.Fprintln(sess.out, helpText)
			continue
		}

		if err := sess.execute(line); err != nil {
			fmt.Fprintf(sess.out, "Error: %v\n", err)
		}
	}
}

type session struct {
	registry        *registry.Registry
	defaultCapacity int
	current         *table.Table
	out             io.Writer
}

func (s *session) execute(line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "create":
		return s.create(rest)
	case "use":
		t, ok := s.registry.Get(rest)
		if !ok {
			return fmt.Errorf("table '%s' does not exist", rest)
		}
		s.current = t
		fmt.Fprintf(s.out, "Using table '%s'\n", rest)
		return nil
	case "ls":
		names := s.registry.List()
		if len(names) == 0 {
			fmt.Fprintln(s.out, "No tables")
			return nil
		}
		for _, name := range names {
			fmt.Fprintf(s.out, "  - %s\n", name)
		}
		return nil
	case "drop":
		if err := s.registry.Drop(rest); err != nil {
			return err
		}
		if s.current != nil && s.current.Name() == rest {
			s.current = nil
		}
		fmt.Fprintf(s.out, "Table '%s' dropped\n", rest)
		return nil
	case "insert":
		return s.insert(rest)
	case "get":
		return s.get(rest)
	case "set":
		return s.set(rest)
	case "del":
		return s.del(rest)
	case "scan":
		return s.scan(rest)
	case "find":
		return s.find(rest)
	case "stats":
		return s.stats()
	default:
		return fmt.Errorf("unknown command '%s' (try 'help')", cmd)
	}
}

func (s *session) create(args string) error {
	parts := strings.Fields(args)
	if len(parts) < 3 || len(parts) > 4 {
		return fmt.Errorf("usage: create <table> <field,field,...> <indexed_field> [cache_capacity]")
	}
	capacity := s.defaultCapacity
	if len(parts) == 4 {
		n, err := strconv.Atoi(parts[3])
		if err != nil {
			return fmt.Errorf("invalid cache capacity %q", parts[3])
		}
		capacity = n
	}
	t, err := s.registry.CreateTable(parts[0], strings.Split(parts[1], ","), parts[2], capacity)
	if err != nil {
		return err
	}
	s.current = t
	fmt.Fprintf(s.out, "Table '%s' created and selected\n", parts[0])
	return nil
}

func (s *session) insert(raw string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	var rec table.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	if err := t.Insert(rec); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Inserted")
	return nil
}

func (s *session) get(value string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	rec, found := t.Search(t.IndexedField(), value)
	if !found {
		fmt.Fprintln(s.out, "no match")
		return nil
	}
	printRecords(s.out, t.Fields(), []table.Record{rec})
	return nil
}

func (s *session) set(args string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	value, raw, ok := strings.Cut(args, " ")
	if !ok {
		return fmt.Errorf("usage: set <value> <json>")
	}
	var changes table.Record
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &changes); err != nil {
		return fmt.Errorf("invalid changes: %w", err)
	}
	if err := t.Update(t.IndexedField(), value, changes); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Updated")
	return nil
}

func (s *session) del(value string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	if err := t.Delete(t.IndexedField(), value); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Deleted")
	return nil
}

func (s *session) scan(args string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	page, perPage, err := parsePage(args)
	if err != nil {
		return err
	}
	records, total, err := t.List(page, perPage)
	if err != nil {
		return err
	}
	printRecords(s.out, t.Fields(), records)
	fmt.Fprintf(s.out, "(%d of %d records)\n", len(records), total)
	return nil
}

func (s *session) find(args string) error {
	t, err := s.table()
	if err != nil {
		return err
	}
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return fmt.Errorf("usage: find <field> <substr> [page] [per_page]")
	}
	page, perPage, err := parsePage(strings.Join(parts[2:], " "))
	if err != nil {
		return err
	}
	records, total, err := t.Match(parts[0], parts[1], page, perPage)
	if err != nil {
		return err
	}
	printRecords(s.out, t.Fields(), records)
	fmt.Fprintf(s.out, "(%d of %d matches)\n", len(records), total)
	return nil
}

func (s *session) stats() error {
	t, err := s.table()
	if err != nil {
		return err
	}
	st := t.CacheStats()
	fmt.Fprintf(s.out, "cache: %d entries, hits=%d misses=%d evictions=%d (since %s)\n",
		t.CacheLen(), st.Hits, st.Misses, st.Evictions, st.LastReset.Format("15:04:05"))
	return nil
}

func (s *session) table() (*table.Table, error) {
	if s.current == nil {
		return nil, fmt.Errorf("no table selected. Use 'use <table>' or 'create' one")
	}
	return s.current, nil
}

func parsePage(args string) (page, perPage int, err error) {
	page, perPage = 1, 10
	parts := strings.Fields(args)
	if len(parts) >= 1 {
		if page, err = strconv.Atoi(parts[0]); err != nil {
			return 0, 0, fmt.Errorf("invalid page %q", parts[0])
		}
	}
	if len(parts) >= 2 {
		if perPage, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("invalid per_page %q", parts[1])
		}
	}
	return page, perPage, nil
}

func printRecords(w io.Writer, fields []string, records []table.Record) {
	if len(records) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	// Header
	for i, f := range fields {
		fmt.Fprintf(tw, "%s", f)
		if i < len(fields)-1 {
			fmt.Fprintf(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Separator
	for i := range fields {
		fmt.Fprintf(tw, "---")
		if i < len(fields)-1 {
			fmt.Fprintf(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Rows
	for _, rec := range records {
		for i, f := range fields {
			val, ok := rec[f]
			if !ok {
				fmt.Fprintf(tw, "NULL")
			} else {
				fmt.Fprintf(tw, "%v", val)
			}
			if i < len(fields)-1 {
				fmt.Fprintf(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
