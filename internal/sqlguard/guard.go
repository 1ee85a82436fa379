// Package sqlguard screens caller-supplied query text before it reaches the
// execution engine. The real isolation wall is the tenant-filtered view
// (the dynamic query cannot escape its filter), but the guard mirrors the
// privilege model at the SQL level: a single SELECT statement, referencing
// only the allowed view, with no statements or table functions that could
// mutate session state, read the filesystem, or leak engine metadata.
package sqlguard

import (
	"fmt"
	"strings"
)

// deniedKeywords are statement forms the executor never accepts. The SET and
// RESET entries also stop query text from tampering with the session
// variables the context broker lives in.
var deniedKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true,
	"create": true, "drop": true, "alter": true, "truncate": true,
	"attach": true, "detach": true, "use": true,
	"copy": true, "export": true, "import": true,
	"set": true, "reset": true, "call": true, "pragma": true,
	"install": true, "load": true,
	"begin": true, "commit": true, "rollback": true, "transaction": true,
	"grant": true, "revoke": true,
	"vacuum": true, "checkpoint": true,
	"describe": true, "summarize": true,
}

// deniedFunctions can read the filesystem, leak internal metadata, or escape
// the query sandbox.
var deniedFunctions = map[string]bool{
	"read_csv":             true,
	"read_csv_auto":        true,
	"read_parquet":         true,
	"read_json":            true,
	"read_json_auto":       true,
	"read_text":            true,
	"read_blob":            true,
	"glob":                 true,
	"sqlite_scan":          true,
	"query_table":          true,
	"duckdb_extensions":    true,
	"duckdb_settings":      true,
	"duckdb_databases":     true,
	"duckdb_secrets":       true,
	"pragma_database_list": true,
}

// clause keywords that terminate a FROM list.
var fromTerminators = map[string]bool{
	"where": true, "group": true, "having": true, "order": true,
	"limit": true, "offset": true, "window": true, "qualify": true,
	"union": true, "intersect": true, "except": true,
	"on": true, "using": true, "select": true,
}

// Guard validates query text against an allow-list of referenceable tables.
type Guard struct {
	allowed map[string]bool
}

// New creates a Guard that admits references to the given tables (the
// tenant-filtered view, in production wiring). Names are case-insensitive.
func New(allowedTables ...string) *Guard {
	allowed := make(map[string]bool, len(allowedTables))
	for _, name := range allowedTables {
		allowed[strings.ToLower(name)] = true
	}
	return &Guard{allowed: allowed}
}

// Check returns nil when sqlText is a single SELECT (optionally with CTEs)
// that references only allowed tables and CTE names.
func (g *Guard) Check(sqlText string) error {
	toks, err := tokenize(sqlText)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return fmt.Errorf("empty query")
	}

	// One statement only: a semicolon may trail, nothing may follow it.
	for i, tok := range toks {
		if tok.kind == tokSymbol && tok.text == ";" {
			if i != len(toks)-1 {
				return fmt.Errorf("multiple statements are not allowed")
			}
			toks = toks[:i]
		}
	}
	if len(toks) == 0 {
		return fmt.Errorf("empty query")
	}

	first := toks[0]
	if first.kind != tokWord || (first.lower() != "select" && first.lower() != "with") {
		return fmt.Errorf("only SELECT statements are allowed")
	}

	cte := map[string]bool{}
	if first.lower() == "with" {
		collectCTENames(toks, cte)
	}

	expectTable := false
	inFromList := false
	for i := 0; i < len(toks); i++ {
		tok := toks[i]

		switch tok.kind {
		case tokWord:
			word := tok.lower()
			if deniedKeywords[word] {
				return fmt.Errorf("statement %q is not allowed", strings.ToUpper(word))
			}
			if deniedFunctions[word] && i+1 < len(toks) && toks[i+1].text == "(" {
				return fmt.Errorf("prohibited function: %s", word)
			}
			switch {
			case word == "from" || word == "join":
				expectTable = true
				inFromList = word == "from"
			case fromTerminators[word]:
				expectTable = false
				inFromList = false
			case expectTable:
				// Dotted reference: the last component names the table.
				name := tok.lower()
				for i+2 < len(toks) && toks[i+1].text == "." && toks[i+2].kind == tokWord {
					name = toks[i+2].lower()
					i += 2
				}
				if i+1 < len(toks) && toks[i+1].text == "(" {
					return fmt.Errorf("table function %q is not allowed", name)
				}
				if !g.allowed[name] && !cte[name] {
					return fmt.Errorf("access denied: table %q is not available (query the %s view)",
						name, g.allowedList())
				}
				expectTable = false
			}
		case tokString, tokNumber:
			// DuckDB treats a literal in table position as an implicit file
			// scan (FROM 'data.csv' reads the file), bypassing the
			// denied-function list.
			if expectTable {
				return fmt.Errorf("literal table references are not allowed")
			}
		case tokSymbol:
			switch tok.text {
			case "(":
				// Subquery or expression; its own FROM is checked when reached.
				expectTable = false
			case ",":
				if inFromList {
					expectTable = true
				}
			}
		}
	}

	return nil
}

func (g *Guard) allowedList() string {
	names := make([]string, 0, len(g.allowed))
	for name := range g.allowed {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// collectCTENames gathers names bound by a leading WITH clause so that
// references to them pass the allow-list.
func collectCTENames(toks []token, out map[string]bool) {
	i := 1 // past WITH
	if i < len(toks) && toks[i].kind == tokWord && toks[i].lower() == "recursive" {
		i++
	}
	for i < len(toks) {
		if toks[i].kind != tokWord {
			return
		}
		out[toks[i].lower()] = true
		i++
		// Optional column list.
		if i < len(toks) && toks[i].text == "(" {
			i = skipParens(toks, i)
		}
		if i >= len(toks) || toks[i].lower() != "as" {
			return
		}
		i++
		if i >= len(toks) || toks[i].text != "(" {
			return
		}
		i = skipParens(toks, i)
		if i < len(toks) && toks[i].text == "," {
			i++
			continue
		}
		return
	}
}

// skipParens advances past a balanced parenthesized group starting at open.
func skipParens(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(toks)
}
