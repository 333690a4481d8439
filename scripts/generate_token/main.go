package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ttiimmothy/expense-splitter/config"
	"github.com/ttiimmothy/expense-splitter/middleware"
)

// Users created by scripts/seed.
var seeded = map[string][2]string{
	"alice":   {"d5a2089c-e39a-4b62-a973-778f6729323d", "Alice"},
	"bob":     {"38c072a2-43f9-42b9-b603-6061c49d5c2d", "Bob"},
	"charlie": {"ad655801-23a9-4a33-8695-81d4426604fb", "Charlie"},
	"diana":   {"0cc055a7-860a-4ac9-8018-82380ba204a3", "Diana"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	who := "alice"
	if len(os.Args) > 1 {
		who = strings.ToLower(os.Args[1])
	}
	user, ok := seeded[who]
	if !ok {
		log.Fatalf("Unknown user %q; pick one of alice, bob, charlie, diana", who)
	}
	email := who + "@example.com"

	token, err := middleware.IssueToken(cfg.JWTSecret, user[0], email, user[1], 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("Generated Token for %s (%s):\n", user[1], email)
	fmt.Println("-----------------------------------------------")
	fmt.Println(token)
	fmt.Println("-----------------------------------------------")
	fmt.Println("\nUser IDs for Postman Variables:")
	fmt.Println("user1Id (Alice):   d5a2089c-e39a-4b62-a973-778f6729323d")
	fmt.Println("user2Id (Bob):     38c072a2-43f9-42b9-b603-6061c49d5c2d")
	fmt.Println("user3Id (Charlie): ad655801-23a9-4a33-8695-81d4426604fb")
	fmt.Println("user4Id (Diana):   0cc055a7-860a-4ac9-8018-82380ba204a3")
}
