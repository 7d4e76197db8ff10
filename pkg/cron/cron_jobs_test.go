package cron

import (
	"regexp"
	"splitledger/internal/repositories/sqlconnect"
	"strings"
	"testing"
)

// The reminder query runs unattended and its errors are only logged, so a
// column that drifts out of sync with the schema breaks the job silently.
// Cross-check every alias.column reference against the DDL.
func TestDebtorBalancesQueryColumnsExist(t *testing.T) {
	aliasTables := map[string]string{
		"debtor":   "users",
		"creditor": "users",
		"g":        "groups",
		"b":        "balances",
	}

	createTable := regexp.MustCompile("CREATE TABLE IF NOT EXISTS `?(\\w+)`?")
	tables := make(map[string]string)
	for _, stmt := range strings.Split(sqlconnect.Schema, ";") {
		if m := createTable.FindStringSubmatch(stmt); m != nil {
			tables[m[1]] = stmt
		}
	}

	refs := regexp.MustCompile(`\b(\w+)\.(\w+)\b`).FindAllStringSubmatch(debtorBalancesQuery, -1)
	if len(refs) == 0 {
		t.Fatal("no column references found in reminder query")
	}

	for _, ref := range refs {
		alias, column := ref[1], ref[2]
		table, ok := aliasTables[alias]
		if !ok {
			t.Errorf("unknown table alias %q in reminder query", alias)
			continue
		}
		ddl, ok := tables[table]
		if !ok {
			t.Fatalf("table %q not found in schema", table)
		}
		declared := regexp.MustCompile(`(?m)^\s*` + column + `\s`)
		if !declared.MatchString(ddl) {
			t.Errorf("column %s.%s referenced by reminder query is not declared in the schema", table, column)
		}
	}
}
