package entity

import (
	"time"
)

type Event struct {
	ID       ID        `json:"id"`
	Title    string    `json:"title"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

type Schedule struct {
	ID       ID        `json:"id"`
	EventID  ID        `json:"event_id"`
	StartsAt time.Time `json:"starts_at"`
}

type Profile struct {
	ID         ID     `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Membership string `json:"membership"`
}
