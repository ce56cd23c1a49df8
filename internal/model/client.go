package model

import "time"

// Client is a guest who can hold reservations. Phone is plain text here;
// the repository encrypts it before it reaches the `clients` table.
type Client struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
