package models

import "time"

// User представляет учётную запись вызывающей стороны (мерчант или оператор).
type User struct {
	UUID         string
	Address      string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
