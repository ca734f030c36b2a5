// Command mainydb is a small REPL exercising the engine end to end: open a
// file, run a handful of shell-like commands against it.
//
// Usage:
//
//	mainydb -file mydb.mdb
//
// Commands (one per line on stdin):
//
//	insert <db> <coll> <json-doc>
//	find <db> <coll> [json-filter]
//	createIndex <db> <coll> <name> <field> <dir>
//	stats <db> <coll>
//	dump <db>
//	quit
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/devid/mainydb"
)

func main() {
	file := flag.String("file", "mainydb.dat", "path to the database file")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	opts := mainydb.Options{Verbose: *verbose}
	if *verbose {
		opts.Logger = slog.Default()
	}
	client, err := mainydb.Open(*file, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mainydb: open %s: %v\n", *file, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	sc := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(os.Stderr, "mainydb> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := runCommand(ctx, client, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func runCommand(ctx context.Context, client *mainydb.Client, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "quit", "exit":
		os.Exit(0)
	case "insert":
		if len(fields) < 4 {
			return fmt.Errorf("usage: insert <db> <coll> <json-doc>")
		}
		doc, err := parseDoc(strings.Join(fields[3:], " "))
		if err != nil {
			return err
		}
		coll := client.Collection(fields[1], fields[2])
		res, err := coll.InsertOne(doc)
		if err != nil {
			return err
		}
		fmt.Printf("inserted %s\n", res.InsertedID)
	case "find":
		if len(fields) < 3 {
			return fmt.Errorf("usage: find <db> <coll> [json-filter]")
		}
		filter := mainydb.NewDocument()
		if len(fields) > 3 {
			f, err := parseDoc(strings.Join(fields[3:], " "))
			if err != nil {
				return err
			}
			filter = f
		}
		coll := client.Collection(fields[1], fields[2])
		cur, err := coll.Find(ctx, filter)
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next() {
			fmt.Println(cur.Doc())
		}
	case "createIndex":
		if len(fields) != 6 {
			return fmt.Errorf("usage: createIndex <db> <coll> <name> <field> <dir>")
		}
		dir, err := strconv.Atoi(fields[5])
		if err != nil {
			return err
		}
		coll := client.Collection(fields[1], fields[2])
		spec := mainydb.IndexSpec{
			Name: fields[3],
			Keys: []mainydb.IndexKey{{Path: mainydb.ParsePath(fields[4]), Dir: dir}},
		}
		if err := coll.CreateIndex(spec); err != nil {
			return err
		}
		fmt.Println("ok")
	case "stats":
		if len(fields) != 3 {
			return fmt.Errorf("usage: stats <db> <coll>")
		}
		coll := client.Collection(fields[1], fields[2])
		st := coll.Stats()
		fmt.Printf("documents=%d indexes=%d indexRows=%d\n", st.Documents, st.Indexes, st.IndexRows)
	case "dump":
		if len(fields) != 2 {
			return fmt.Errorf("usage: dump <db>")
		}
		db := client.Database(fields[1])
		fmt.Println(db.Dump(mainydb.DumpAll))
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

func parseDoc(s string) (*mainydb.Document, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return docFromJSON(raw), nil
}

func docFromJSON(raw map[string]any) *mainydb.Document {
	d := mainydb.NewDocument()
	for k, v := range raw {
		d.Set(k, valueFromJSON(v))
	}
	return d
}

func valueFromJSON(v any) mainydb.Value {
	switch t := v.(type) {
	case nil:
		return mainydb.Null()
	case bool:
		return mainydb.Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return mainydb.Int(int64(t))
		}
		return mainydb.Float(t)
	case string:
		return mainydb.String(t)
	case []any:
		arr := make([]mainydb.Value, len(t))
		for i, el := range t {
			arr[i] = valueFromJSON(el)
		}
		return mainydb.Array(arr)
	case map[string]any:
		return mainydb.Doc(docFromJSON(t))
	default:
		return mainydb.Null()
	}
}
