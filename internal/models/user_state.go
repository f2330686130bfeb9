package models

import "time"

// UserState is the persisted dialog position of one bot user.
type UserState struct {
	UserID    int64             `json:"user_id"`
	Step      string            `json:"step"`
	Form      map[string]string `json:"form,omitempty"`
	EditingID int64             `json:"editing_id,omitempty"`
	Field     string            `json:"field,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}
