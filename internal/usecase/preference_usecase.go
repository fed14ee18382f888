package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/budgetledger/internal/domain"
)

const preferenceCachePrefix = "pref:"

// PreferenceUseCase reads and writes user preferences through a cache.
type PreferenceUseCase struct {
	preferenceRepo  PreferenceRepository
	cache           Cache
	cacheTTL        time.Duration
	defaultCurrency string
}

// NewPreferenceUseCase creates a new PreferenceUseCase. cache may be nil.
func NewPreferenceUseCase(preferenceRepo PreferenceRepository, cache Cache, cacheTTL time.Duration, defaultCurrency string) *PreferenceUseCase {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &PreferenceUseCase{
		preferenceRepo:  preferenceRepo,
		cache:           cache,
		cacheTTL:        cacheTTL,
		defaultCurrency: defaultCurrency,
	}
}

// GetPreference returns the caller's preferences, falling back to defaults.
func (uc *PreferenceUseCase) GetPreference(ctx context.Context, userID string) (*domain.UserPreference, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}

	if pref := uc.fromCache(ctx, userID); pref != nil {
		return pref, nil
	}

	pref, err := uc.preferenceRepo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			return nil, err
		}
		pref = &domain.UserPreference{UserID: userID, PrincipalCurrency: uc.defaultCurrency}
	}

	uc.toCache(ctx, pref)

	return pref, nil
}

// SetPrincipalCurrency stores the caller's principal currency.
func (uc *PreferenceUseCase) SetPrincipalCurrency(ctx context.Context, userID, currency string) (*domain.UserPreference, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}

	currency, err := domain.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	pref := &domain.UserPreference{
		UserID:            userID,
		PrincipalCurrency: currency,
		UpdatedAt:         now(),
	}

	if err := uc.preferenceRepo.Upsert(ctx, pref); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, preferenceCachePrefix+userID); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("preference cache invalidation failed")
		}
	}

	return pref, nil
}

// PrincipalCurrency implements CurrencyResolver.
func (uc *PreferenceUseCase) PrincipalCurrency(ctx context.Context, userID string) (string, error) {
	pref, err := uc.GetPreference(ctx, userID)
	if err != nil {
		return "", err
	}
	return pref.PrincipalCurrency, nil
}

func (uc *PreferenceUseCase) fromCache(ctx context.Context, userID string) *domain.UserPreference {
	if uc.cache == nil {
		return nil
	}

	raw, err := uc.cache.Get(ctx, preferenceCachePrefix+userID)
	if err != nil || raw == nil {
		return nil
	}

	var pref domain.UserPreference
	if err := json.Unmarshal(raw, &pref); err != nil {
		return nil
	}

	return &pref
}

func (uc *PreferenceUseCase) toCache(ctx context.Context, pref *domain.UserPreference) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(pref)
	if err != nil {
		return
	}

	if err := uc.cache.Set(ctx, preferenceCachePrefix+pref.UserID, raw, uc.cacheTTL); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", pref.UserID).Msg("preference cache write failed")
	}
}
