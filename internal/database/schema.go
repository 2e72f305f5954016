package database

import (
	"fmt"
	"log"
)

// CreateTables creates all required tables in the database
func CreateTables() {
	createUsersTable()
	createHobbiesTable()
	createToolsTable()
}

// createUsersTable creates the users table
func createUsersTable() {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		profile_picture VARCHAR(500) NOT NULL DEFAULT 'default-profile.jpg',
		bio TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create users table:", err)
	}

	ensureUsersSchema()
	fmt.Println("Users table created successfully")
}

func createHobbiesTable() {
	query := `
	CREATE TABLE IF NOT EXISTS hobbies (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_public BOOLEAN NOT NULL DEFAULT TRUE,
		owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create hobbies table:", err)
	}

	ensureHobbiesSchema()
	fmt.Println("Hobbies table created successfully")
}

func createToolsTable() {
	query := `
	CREATE TABLE IF NOT EXISTS tools (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		brand VARCHAR(255) NOT NULL DEFAULT '',
		model VARCHAR(255) NOT NULL DEFAULT '',
		purchase_date DATE,
		price NUMERIC(12, 2) CHECK (price IS NULL OR price >= 0),
		condition VARCHAR(32) NOT NULL DEFAULT 'good',
		images TEXT[] NOT NULL DEFAULT '{}',
		hobby_id INTEGER NOT NULL REFERENCES hobbies(id) ON DELETE CASCADE,
		owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_public BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := DB.Exec(query)
	if err != nil {
		log.Fatal("Failed to create tools table:", err)
	}

	ensureToolsSchema()
	fmt.Println("Tools table created successfully")
}

func ensureUsersSchema() {
	// Uniqueness is case-insensitive; registration also lowercases email
	// before writing so the index and the application agree.
	if _, err := DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_unique ON users(lower(email))`); err != nil {
		log.Fatal("Failed to ensure users email uniqueness index:", err)
	}

	if _, err := DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_unique ON users(lower(username))`); err != nil {
		log.Fatal("Failed to ensure users username uniqueness index:", err)
	}
}

func ensureHobbiesSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS hobbies_owner_created_idx ON hobbies(owner_id, created_at DESC, id DESC)`); err != nil {
		log.Fatal("Failed to ensure hobbies owner index:", err)
	}

	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS hobbies_public_created_idx ON hobbies(is_public, created_at DESC, id DESC)`); err != nil {
		log.Fatal("Failed to ensure hobbies public index:", err)
	}
}

func ensureToolsSchema() {
	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS tools_owner_created_idx ON tools(owner_id, created_at DESC, id DESC)`); err != nil {
		log.Fatal("Failed to ensure tools owner index:", err)
	}

	if _, err := DB.Exec(`CREATE INDEX IF NOT EXISTS tools_hobby_idx ON tools(hobby_id)`); err != nil {
		log.Fatal("Failed to ensure tools hobby index:", err)
	}
}
