package main

import (
	"log"

	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/utils"
)

func main() {
	if err := database.InitDatabase("data/bookswap.db"); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.DB.Close()

	hash, err := utils.HashPassword("Password123")
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	_, err = database.DB.Exec(`INSERT OR IGNORE INTO users (id, username, email, password_hash, show_email) VALUES
		('alice123', 'alice', 'alice@example.com', ?, 1),
		('bob456', 'bob', 'bob@example.com', ?, 0)`, hash, hash)
	if err != nil {
		log.Fatalf("Failed to insert users: %v", err)
	}

	_, err = database.DB.Exec(`INSERT OR IGNORE INTO books (id, title, author, isbn, genres, condition, status, owner_id) VALUES
		('book-dune', 'Dune', 'Frank Herbert', '9780441172719', '["Science Fiction","Classic"]', 'good', 'available', 'bob456'),
		('book-hobbit', 'The Hobbit', 'J.R.R. Tolkien', '9780547928227', '["Fantasy"]', 'like_new', 'available', 'bob456'),
		('book-dracula', 'Dracula', 'Bram Stoker', '', '["Horror","Classic"]', 'fair', 'available', 'alice123')`)
	if err != nil {
		log.Fatalf("Failed to insert books: %v", err)
	}

	for i, entry := range []struct {
		title string
		isbn  string
	}{
		{"Dune", "9780441172719"},
		{"The Left Hand of Darkness", ""},
	} {
		id, err := utils.GenerateID(16)
		if err != nil {
			log.Fatalf("Failed to generate id: %v", err)
		}
		_, err = database.DB.Exec(
			`INSERT OR IGNORE INTO wishlist_items (id, user_id, title, isbn, position) VALUES (?, 'alice123', ?, ?, ?)`,
			id, entry.title, entry.isbn, i+1)
		if err != nil {
			log.Fatalf("Failed to insert wishlist item: %v", err)
		}
	}

	log.Println("Test data inserted successfully")
}
