package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"goDB/internal/catalog"
	"goDB/internal/engine"
	"goDB/internal/sql"
)

// runREPL is the interactive session: it buffers input lines until one
// ends with ';', then parses and executes the accumulated statement.
// Statement text spanning multiple lines (a CREATE TABLE with each column
// on its own line, say) is the common case this buffering exists for.
func runREPL(eng *engine.Engine) {
	in := bufio.NewReader(os.Stdin)
	var buf strings.Builder

	fmt.Println("godb — type SQL ending in ';', or .exit to quit")
	for {
		if buf.Len() == 0 {
			fmt.Print("godb> ")
		} else {
			fmt.Print("   -> ")
		}

		line, err := in.ReadString('\n')
		if err != nil {
			break
		}
		trimmed := strings.TrimSpace(line)

		if buf.Len() == 0 && strings.HasPrefix(trimmed, ".") {
			if handleMeta(trimmed) {
				return
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		runStatement(eng, buf.String())
		buf.Reset()
	}
}

func handleMeta(cmd string) (quit bool) {
	switch cmd {
	case ".exit", ".quit":
		return true
	case ".help":
		fmt.Println("SQL statements end in ';'. SHOW DATABASES/TABLES and DESC <table> describe the catalog. .exit quits.")
	default:
		fmt.Printf("unknown command %q\n", cmd)
	}
	return false
}

func runStatement(eng *engine.Engine, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	stmt, err := sql.Parse(text)
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	res, err := eng.Execute(stmt)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printResult(res)
}

func printResult(res engine.Result) {
	if len(res.Columns) == 0 {
		if res.Message != "" {
			fmt.Println(res.Message)
		}
		return
	}
	fmt.Println(strings.Join(res.Columns, " | "))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	fmt.Printf("(%d row(s))\n", len(res.Rows))
}

func formatValue(v catalog.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	return v.String()
}
