package models

import (
	"errors"
	"strings"
	"time"
)

type Household struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type Member struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (h *Household) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return errors.New("name is required")
	}
	h.Currency = strings.ToUpper(strings.TrimSpace(h.Currency))
	if h.Currency == "" {
		h.Currency = "EUR"
	}
	if len(h.Currency) != 3 {
		return errors.New("currency must be a 3-letter ISO code")
	}
	return nil
}

func (h Household) HasMember(userID string) bool {
	for _, m := range h.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (h Household) MemberIDs() []string {
	ids := make([]string, len(h.Members))
	for i, m := range h.Members {
		ids[i] = m.UserID
	}
	return ids
}
