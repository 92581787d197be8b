package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDatabase(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	var err error
	DB, err = sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Database connection established")

	if _, err := DB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Printf("Warning: failed to enable foreign keys: %v", err)
	}

	if err = createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("Database tables created successfully")
	return nil
}

func createTables() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        username TEXT UNIQUE NOT NULL,
        email TEXT UNIQUE,
        password_hash TEXT NOT NULL,
        location TEXT DEFAULT '',
        profile_image TEXT DEFAULT '',
        bio TEXT DEFAULT '',
        preferences TEXT DEFAULT '[]',
        points INTEGER DEFAULT 0,
        average_rating REAL DEFAULT 0,
        role TEXT DEFAULT 'user',
        show_email INTEGER DEFAULT 0,
        last_login TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS books (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        author TEXT,
        isbn TEXT,
        genres TEXT DEFAULT '[]',
        description TEXT DEFAULT '',
        condition TEXT DEFAULT '',
        cover_url TEXT DEFAULT '',
        status TEXT DEFAULT 'available',
        owner_id TEXT NOT NULL,
        view_count INTEGER DEFAULT 0,
        promoted_at TIMESTAMP,
        promoted_until TIMESTAMP,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS wishlist_items (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        author TEXT DEFAULT '',
        isbn TEXT DEFAULT '',
        position INTEGER DEFAULT 0,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS blocked_users (
        user_id TEXT NOT NULL,
        blocked_id TEXT NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, blocked_id),
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (blocked_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS transactions (
        id TEXT PRIMARY KEY,
        initiator_id TEXT NOT NULL,
        receiver_id TEXT NOT NULL,
        requested_book_id TEXT NOT NULL,
        offered_book_ids TEXT DEFAULT '[]',
        exchange_location TEXT DEFAULT '',
        status TEXT DEFAULT 'pending',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        completed_at TIMESTAMP,
        FOREIGN KEY (initiator_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (receiver_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (requested_book_id) REFERENCES books(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS reviews (
        id TEXT PRIMARY KEY,
        transaction_id TEXT NOT NULL,
        reviewer_id TEXT NOT NULL,
        reviewed_id TEXT NOT NULL,
        rating INTEGER NOT NULL,
        comment TEXT DEFAULT '',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (transaction_id, reviewer_id),
        FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE,
        FOREIGN KEY (reviewer_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (reviewed_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS user_rankings (
        user_id TEXT PRIMARY KEY,
        total_score REAL DEFAULT 0,
        trading_score REAL DEFAULT 0,
        reputation_score REAL DEFAULT 0,
        activity_score REAL DEFAULT 0,
        rank INTEGER DEFAULT 0,
        previous_rank INTEGER DEFAULT 0,
        tier TEXT DEFAULT 'bronze',
        completed_exchanges INTEGER DEFAULT 0,
        reviews_given INTEGER DEFAULT 0,
        average_rating REAL DEFAULT 0,
        weekly_exchanges INTEGER DEFAULT 0,
        weekly_reviews INTEGER DEFAULT 0,
        last_activity TIMESTAMP,
        last_calculated TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY,
        from_user_id TEXT NOT NULL,
        to_user_id TEXT NOT NULL,
        content TEXT NOT NULL,
        read INTEGER DEFAULT 0,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (from_user_id) REFERENCES users(id) ON DELETE CASCADE,
        FOREIGN KEY (to_user_id) REFERENCES users(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
    CREATE INDEX IF NOT EXISTS idx_books_status_owner ON books(status, owner_id);
    CREATE INDEX IF NOT EXISTS idx_wishlist_user ON wishlist_items(user_id);
    CREATE INDEX IF NOT EXISTS idx_transactions_initiator ON transactions(initiator_id);
    CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_id);
    CREATE INDEX IF NOT EXISTS idx_reviews_reviewed ON reviews(reviewed_id);
    CREATE INDEX IF NOT EXISTS idx_rankings_score ON user_rankings(total_score);
    CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_user_id);
    `

	_, err := DB.Exec(schema)
	if err != nil {
		return err
	}
	// Migration for databases created before promotion windows existed
	if err := ensureColumn("books", "promoted_until", `ALTER TABLE books ADD COLUMN promoted_until TIMESTAMP;`); err != nil {
		return err
	}
	// Migration for databases created before the email visibility toggle
	return ensureColumn("users", "show_email", `ALTER TABLE users ADD COLUMN show_email INTEGER DEFAULT 0;`)
}

func ensureColumn(table, column, alter string) error {
	rows, err := DB.Query(fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return err
	}
	defer rows.Close()
	found := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			found = true
			break
		}
	}
	if !found {
		if _, err := DB.Exec(alter); err != nil {
			log.Printf("Warning: adding %s column to %s failed: %v", column, table, err)
		} else {
			log.Printf("✓ Added %s column to existing %s table", column, table)
		}
	}
	return nil
}

func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
