package services

import (
	"context"
	"errors"
	"strings"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/models"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type HouseholdService struct {
	r   repo.Households
	inv Invalidator
}

func NewHouseholdService(r repo.Households, inv Invalidator) *HouseholdService {
	return &HouseholdService{r: r, inv: inv}
}

func householdErr(id string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("household", id)
	}
	return apperr.AsStorage("household", err)
}

func checkMembers(members []models.Member) error {
	seen := map[string]bool{}
	for i := range members {
		members[i].UserID = strings.TrimSpace(members[i].UserID)
		id := members[i].UserID
		if id == "" {
			return apperr.Validation("members", "user_id is required")
		}
		if seen[id] {
			return apperr.Validationf("members", "duplicate member %s", id)
		}
		seen[id] = true
	}
	return nil
}

func (s *HouseholdService) Create(ctx context.Context, h *models.Household) error {
	h.ID = ""
	if err := h.Validate(); err != nil {
		return apperr.Validation("household", err.Error())
	}
	if err := checkMembers(h.Members); err != nil {
		return err
	}
	err := s.r.Create(ctx, h)
	if errors.Is(err, repo.ErrDuplicate) {
		return apperr.Conflict("household " + h.ID + " already exists")
	}
	return apperr.AsStorage("create household", err)
}

func (s *HouseholdService) Get(ctx context.Context, id string) (models.Household, error) {
	h, err := s.r.Get(ctx, id)
	if err != nil {
		return models.Household{}, householdErr(id, err)
	}
	return h, nil
}

// AddMembers adds the members that are not in the household yet.
func (s *HouseholdService) AddMembers(ctx context.Context, householdID string, members []models.Member) (models.Household, error) {
	if len(members) == 0 {
		return models.Household{}, apperr.Validation("members", "at least one member is required")
	}
	if err := checkMembers(members); err != nil {
		return models.Household{}, err
	}
	if err := s.r.AddMembers(ctx, householdID, members); err != nil {
		return models.Household{}, householdErr(householdID, err)
	}
	s.inv.Invalidate(householdID)
	return s.Get(ctx, householdID)
}
