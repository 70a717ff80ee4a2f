package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"goDB/internal/catalog"
	"goDB/internal/engine"
	"goDB/internal/sql"
)

// runBatch reads one statement per line (no multi-line buffering, unlike
// the REPL) and writes a machine-readable transcript to stdout: an
// "@<statement>" marker before each command's output, its result rows as
// CSV when it produced any, or "!<error>" in place of output on failure.
func runBatch(eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	w := csv.NewWriter(os.Stdout)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		fmt.Printf("@%s\n", line)

		stmt, err := sql.Parse(line)
		if err != nil {
			fmt.Printf("!%v\n", err)
			continue
		}
		res, err := eng.Execute(stmt)
		if err != nil {
			fmt.Printf("!%v\n", err)
			continue
		}
		writeCSVResult(w, res)
	}
}

func writeCSVResult(w *csv.Writer, res engine.Result) {
	if len(res.Columns) == 0 {
		if res.Message != "" {
			fmt.Println(res.Message)
		}
		return
	}
	_ = w.Write(res.Columns)
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = csvCell(v)
		}
		_ = w.Write(cells)
	}
	w.Flush()
}

func csvCell(v catalog.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}
