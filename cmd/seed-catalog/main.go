package main

import (
	"fmt"
	"os"
	"strings"

	"bookstore-pos/pos"
)

// Seeds a fresh demo database with a catalog, stock levels and two employees.

const dbFile = "bookstore.db"

func main() {
	// Clean up any existing database files
	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{dbFile, dbFile + "-shm", dbFile + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}

	mgr, err := pos.NewManager(dbFile, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	books := []struct {
		title, author string
		stock         int
	}{
		{"1984", "George Orwell", 12},
		{"Animal Farm", "George Orwell", 8},
		{"The Art of War", "Sun Tzu", 5},
		{"The Fellowship of the Ring", "J.R.R. Tolkien", 7},
		{"The Two Towers", "J.R.R. Tolkien", 7},
		{"The Return of the King", "J.R.R. Tolkien", 6},
		{"Romeo and Juliet", "William Shakespeare", 4},
		{"The Three Musketeers", "Alexandre Dumas", 3},
		{"The Diary of a Young Girl", "Anne Frank", 1},
	}

	successCount := 0
	for _, b := range books {
		fmt.Printf("Adding: %s by %s (stock %d)... ", b.title, b.author, b.stock)
		id, err := mgr.AddBook(b.title, b.author, b.stock)
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}

	employees := []struct {
		name, phone, role, pin string
	}{
		{"Alice Stone", "555-0101", "admin", "1234"},
		{"Bob Reyes", "555-0102", "cashier", "5678"},
	}
	for _, e := range employees {
		id, err := mgr.AddEmployee(e.name, e.phone, e.role, e.pin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding employee %s: %v\n", e.name, err)
			continue
		}
		fmt.Printf("Added employee %d: %s (%s), PIN %s\n", id, e.name, e.role, e.pin)
	}

	fmt.Printf("\nSeed complete! %d book(s) added.\n", successCount)

	if successCount > 0 {
		all, err := mgr.GetAllBooks()
		if err != nil {
			fmt.Printf("Error retrieving books: %v\n", err)
			return
		}
		fmt.Printf("\n%-5s %-35s %-25s %5s\n", "ID", "Title", "Author", "Stock")
		fmt.Println(strings.Repeat("-", 75))
		for _, b := range all {
			fmt.Println(pos.PrettyBook(b))
		}
	}
}
