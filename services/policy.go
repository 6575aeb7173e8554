package services

import (
	"github.com/irisdrone/moviedb/models"
)

// Principal is the authenticated caller of an operation
type Principal struct {
	UserID uint
	Role   models.Role
}

// IsAdmin reports whether the principal may manage the catalogue
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

func requireUser(p *Principal) error {
	if p == nil || p.UserID == 0 {
		return unauthorized("Authentication required")
	}
	return nil
}

func requireAdmin(p *Principal) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return forbidden("Admin access required")
	}
	return nil
}

func requireAuthor(p *Principal, review *models.Review, action string) error {
	if review.UserID != p.UserID {
		return forbidden("You can only " + action + " your own reviews")
	}
	return nil
}
