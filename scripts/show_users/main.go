package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ttiimmothy/expense-splitter/config"
	"github.com/ttiimmothy/expense-splitter/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	rows, err := db.Pool.Query(ctx, `
		SELECT u.id, COALESCE(u.email, ''), u.name, COUNT(gm.group_id)
		FROM users u
		LEFT JOIN group_members gm ON gm.user_id = u.id
		GROUP BY u.id, u.email, u.name
		ORDER BY u.email ASC`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Println("Users in Database:")
	fmt.Println("------------------")
	for rows.Next() {
		var id, email, name string
		var groups int64
		if err := rows.Scan(&id, &email, &name, &groups); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("ID: %s | Email: %-20s | Name: %-10s | Groups: %d\n", id, email, name, groups)
	}
	if err := rows.Err(); err != nil {
		log.Fatal(err)
	}
}
