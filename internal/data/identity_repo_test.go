package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/extranet-gate/internal/domain/auth"
	"github.com/target/extranet-gate/internal/testutil"
)

func TestIdentityRepo_CreateAndFind(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)
		ctx := context.Background()

		created, err := repo.Create(ctx, domainauth.Identity{
			Username:     "alice",
			DisplayName:  "Alice Example",
			Email:        "alice@example.com",
			Groups:       []string{"employees", "vpn-users"},
			PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "alice", created.Username)
		assert.Equal(t, []string{"employees", "vpn-users"}, created.Groups)
		assert.False(t, created.Disabled)

		byUsername, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byUsername.ID)
		assert.Equal(t, created.PasswordHash, byUsername.PasswordHash)

		byID, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)
	})
}

func TestIdentityRepo_FindNotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)
		ctx := context.Background()

		_, err := repo.FindByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, ErrIdentityNotFound)

		_, err = repo.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrIdentityNotFound)

		// Malformed ids must not surface a postgres cast error.
		_, err = repo.FindByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})
}

func TestIdentityRepo_CreateDuplicateUsername(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)
		ctx := context.Background()

		_, err := repo.Create(ctx, domainauth.Identity{Username: "bob", Email: "bob@example.com"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, domainauth.Identity{Username: "bob", Email: "other@example.com"})
		assert.ErrorIs(t, err, ErrUsernameExists)
	})
}

func TestIdentityRepo_FindOrCreateByLink(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)
		ctx := context.Background()

		link := domainauth.FederatedLink{ProviderID: "corp-oidc", ExternalSubject: "sub-1"}
		identity := domainauth.Identity{
			Username:    "carol",
			DisplayName: "Carol Example",
			Email:       "carol@example.com",
			Groups:      []string{"employees"},
		}

		first, err := repo.FindOrCreateByLink(ctx, link, identity)
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		assert.Equal(t, "carol", first.Username)

		// Same link resolves to the same identity.
		second, err := repo.FindOrCreateByLink(ctx, link, identity)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		// A different subject at another provider for the same username
		// reuses the identity rather than duplicating it.
		otherLink := domainauth.FederatedLink{ProviderID: "partner-oidc", ExternalSubject: "sub-9"}
		third, err := repo.FindOrCreateByLink(ctx, otherLink, identity)
		require.NoError(t, err)
		assert.Equal(t, first.ID, third.ID)
	})
}

func TestIdentityRepo_FindOrCreateByLinkConcurrent(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)
		ctx := context.Background()

		link := domainauth.FederatedLink{ProviderID: "corp-oidc", ExternalSubject: "sub-race"}
		identity := domainauth.Identity{Username: "dave", Email: "dave@example.com"}

		ids := make(chan string, 4)
		runner := testutil.NewConcurrentTestRunner(t)
		attempt := func() error {
			got, err := repo.FindOrCreateByLink(ctx, link, identity)
			if err != nil {
				return err
			}
			ids <- got.ID
			return nil
		}

		errs := runner.RunConcurrent(attempt, attempt, attempt, attempt)
		runner.AssertNoErrors(errs)
		close(ids)

		seen := map[string]bool{}
		for id := range ids {
			seen[id] = true
		}
		assert.Len(t, seen, 1, "concurrent first logins must converge on one identity")
	})
}

func TestIdentityRepo_FindOrCreateByLinkValidation(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)

		_, err := repo.FindOrCreateByLink(context.Background(), domainauth.FederatedLink{}, domainauth.Identity{Username: "x"})
		assert.Error(t, err)
	})
}

func TestIdentityRepo_UpdateProfile(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)
		ctx := context.Background()

		created, err := repo.Create(ctx, domainauth.Identity{
			Username: "erin",
			Email:    "erin@example.com",
			Groups:   []string{"employees"},
		})
		require.NoError(t, err)

		created.DisplayName = "Erin Example"
		created.Groups = []string{"employees", "admins"}
		require.NoError(t, repo.UpdateProfile(ctx, created))

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Erin Example", got.DisplayName)
		assert.Equal(t, []string{"employees", "admins"}, got.Groups)

		err = repo.UpdateProfile(ctx, domainauth.Identity{ID: "00000000-0000-0000-0000-000000000000"})
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})
}

func TestIdentityRepo_SetPasswordHash(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewIdentityRepo(db)
		ctx := context.Background()

		created, err := repo.Create(ctx, domainauth.Identity{
			Username:     "frank",
			Email:        "frank@example.com",
			PasswordHash: "old",
		})
		require.NoError(t, err)

		require.NoError(t, repo.SetPasswordHash(ctx, created.ID, "new"))

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.PasswordHash)
	})
}
