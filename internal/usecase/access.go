package usecase

import (
	"context"
	"errors"
	"sort"

	"github.com/iho/budgetledger/internal/domain"
)

func requireOwner(userID string) error {
	if userID == "" {
		return domain.ErrMissingOwner
	}
	return nil
}

func checkWalletOwner(wallet *domain.Wallet, userID string) error {
	if !wallet.OwnedBy(userID) {
		return domain.ErrWalletAccessDenied
	}
	return nil
}

// envelopeRole resolves the caller's role on an envelope. The owner always
// has RoleOwner; other users need a participant row on a shared envelope.
func envelopeRole(ctx context.Context, participants ParticipantRepository, envelope *domain.Envelope, userID string) (domain.ParticipantRole, error) {
	if envelope.OwnerID == userID {
		return domain.RoleOwner, nil
	}

	if !envelope.Shared || participants == nil {
		return "", domain.ErrEnvelopeAccessDenied
	}

	p, err := participants.Find(ctx, envelope.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return "", domain.ErrEnvelopeAccessDenied
		}
		return "", err
	}

	return p.Role, nil
}

func checkEnvelopeSpend(ctx context.Context, participants ParticipantRepository, envelope *domain.Envelope, userID string) error {
	role, err := envelopeRole(ctx, participants, envelope, userID)
	if err != nil {
		return err
	}
	if !role.CanSpend() {
		return domain.ErrEnvelopeAccessDenied
	}
	return nil
}

func checkEnvelopeManage(ctx context.Context, participants ParticipantRepository, envelope *domain.Envelope, userID string) error {
	role, err := envelopeRole(ctx, participants, envelope, userID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return domain.ErrEnvelopeAccessDenied
	}
	return nil
}

// categoryResolver validates category links on transactions.
type categoryResolver struct {
	categories    CategoryRepository
	subcategories SubcategoryRepository
}

// resolve checks ownership and infers the category from the subcategory.
func (r categoryResolver) resolve(ctx context.Context, ownerID string, categoryID, subcategoryID *string) (*string, *string, error) {
	if subcategoryID != nil {
		sub, err := r.subcategories.GetByID(ctx, *subcategoryID)
		if err != nil {
			return nil, nil, err
		}
		if sub.OwnerID != ownerID {
			return nil, nil, domain.ErrCategoryAccessDenied
		}
		if categoryID != nil && *categoryID != sub.CategoryID {
			return nil, nil, domain.ErrSubcategoryMismatch
		}
		inferred := sub.CategoryID
		categoryID = &inferred
	}

	if categoryID != nil {
		cat, err := r.categories.GetByID(ctx, *categoryID)
		if err != nil {
			return nil, nil, err
		}
		if cat.OwnerID != ownerID {
			return nil, nil, domain.ErrCategoryAccessDenied
		}
	}

	return categoryID, subcategoryID, nil
}

func uniqueSorted(ids ...*string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		out = append(out, *id)
	}
	sort.Strings(out)
	return out
}
