package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// Одноразовая утилита обслуживания базы: чинит dirty-состояние миграций
// и приводит исторические данные к текущим инвариантам (email в нижнем
// регистре, заказы без осиротевших ссылок на коды).
func main() {
	forceVersion := flag.Int("force", -1, "force migration version to clean a dirty state")
	flag.Parse()

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		connStr = "host=localhost port=5432 user=postgres password=postgres dbname=photodrop_db sslmode=disable"
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	if *forceVersion >= 0 {
		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			log.Fatal(err)
		}
		m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Forcing migration version to %d to clean dirty state...\n", *forceVersion)
		if err := m.Force(*forceVersion); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
		fmt.Println("Dirty state cleaned.")
		return
	}

	// Email сравниваются в нижнем регистре по всему приложению;
	// старые строки могли быть записаны до нормализации
	res, err := db.Exec(`UPDATE accounts SET email = LOWER(TRIM(email)) WHERE email <> LOWER(TRIM(email))`)
	if err != nil {
		log.Fatalf("Failed to normalize account emails: %v", err)
	}
	n, _ := res.RowsAffected()
	fmt.Printf("Normalized %d account emails\n", n)

	res, err = db.Exec(`UPDATE orders SET email = LOWER(TRIM(email)) WHERE email <> LOWER(TRIM(email))`)
	if err != nil {
		log.Fatalf("Failed to normalize order emails: %v", err)
	}
	n, _ = res.RowsAffected()
	fmt.Printf("Normalized %d order emails\n", n)

	// Заказы, ссылающиеся на удаленные коды (например, после clear-all)
	res, err = db.Exec(`
		UPDATE orders SET code_id = NULL
		WHERE code_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM verification_codes vc WHERE vc.id = orders.code_id)`)
	if err != nil {
		log.Fatalf("Failed to clear orphaned code references: %v", err)
	}
	n, _ = res.RowsAffected()
	fmt.Printf("Cleared %d orphaned code references\n", n)

	fmt.Println("Done.")
}
