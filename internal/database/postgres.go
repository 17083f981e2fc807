package database

import (
	"database/sql"
)

type PgOfficeRepository struct {
	conn *sql.DB
}

func NewPgOfficeRepository(dsn string) (*PgOfficeRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgOfficeRepository{conn: db}, nil
}

func (db *PgOfficeRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgOfficeRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
