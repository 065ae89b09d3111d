package models

import "time"

// Client mirrors the clients table.
type Client struct {
	ClientID  string    `db:"client_id"`
	FullName  string    `db:"full_name"`
	JobTitle  string    `db:"job_title"`
	Blocked   bool      `db:"blocked"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
