// Command godb-server is a small runnable demonstration of the yachtsql
// Executor: create a table, insert a couple of rows under an explicit
// transaction, then query them back.
package main

import (
	"fmt"
	"strings"

	"yachtsql"
	"yachtsql/internal/lexer"
	"yachtsql/internal/txn"
)

func main() {
	fmt.Println("yachtsql demo starting...")

	eng := yachtsql.New(yachtsql.Options{Dialect: lexer.PostgreSQL})

	if _, err := eng.Execute(`CREATE TABLE users (id INT NOT NULL, name TEXT, active BOOL)`); err != nil {
		fmt.Println("CREATE TABLE ERROR:", err)
		return
	}
	fmt.Println("Table 'users' created.")

	if err := eng.Begin(txn.ReadCommitted); err != nil {
		fmt.Println("BEGIN ERROR:", err)
		return
	}

	if _, err := eng.Execute(`INSERT INTO users VALUES (1, 'Alice', true)`); err != nil {
		fmt.Println("INSERT ERROR:", err)
		return
	}
	if _, err := eng.Execute(`INSERT INTO users VALUES (2, 'Bob', false)`); err != nil {
		fmt.Println("INSERT ERROR:", err)
		return
	}

	if err := eng.Commit(); err != nil {
		fmt.Println("COMMIT ERROR:", err)
		return
	}
	fmt.Println("Inserted 2 rows into 'users'.")

	fmt.Println("\nSelecting all from 'users':")
	res, err := eng.Execute(`SELECT id, name, active FROM users ORDER BY id`)
	if err != nil {
		fmt.Println("SELECT ERROR:", err)
		return
	}
	printBatch(res)

	plan, err := eng.Explain(`SELECT id, name, active FROM users WHERE active ORDER BY id`)
	if err != nil {
		fmt.Println("EXPLAIN ERROR:", err)
		return
	}
	fmt.Println("\nPlan for SELECT ... WHERE active ORDER BY id:")
	fmt.Println(plan)
}

func printBatch(res *yachtsql.Result) {
	if !res.IsQuery() {
		fmt.Printf("(%d rows affected)\n", res.Ack.RowsAffected)
		return
	}
	batch := res.Batch
	names := make([]string, batch.NumCols())
	for i, c := range batch.Schema.Columns {
		names[i] = c.Name
	}
	fmt.Println(strings.Join(names, " | "))
	for i := 0; i < batch.NumRows(); i++ {
		row := batch.Row(i)
		parts := make([]string, len(row))
		for j, v := range row {
			parts[j] = v.String()
		}
		fmt.Println(strings.Join(parts, " | "))
	}
}
