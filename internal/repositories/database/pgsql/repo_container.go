package pgsql

import (
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider creates a repository provider with all pgx-backed
// repositories wired to the given pool.
func NewRepositoryProvider(pool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo:    NewPgxUserRepository(pool),
		CardRepo:    NewPgxCardRepository(pool),
		ListingRepo: NewPgxListingRepository(pool),
		CreditsRepo: NewPgxCreditsRepository(pool),
	}
}
