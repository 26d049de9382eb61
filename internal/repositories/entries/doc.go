// Package entries provides the persistence layer for credential entries.
//
// Entries are stored verbatim: secret columns (encrypted_password,
// encrypted_card_number, encrypted_cvv, encrypted_private_key) already hold
// cipher blobs when they reach the repository, and are returned unchanged.
// Every read also loads the ids of accounts the entry is restricted from,
// so callers can apply the access policy without a second query.
//
// Typical usage:
//
//	repo := entries.NewSQLiteRepository(db)
//	_ = repo.Create(ctx, entry)
//	list, _ := repo.ListByVault(ctx, vaultID)
//	hits, _ := repo.Search(ctx, vaultID, "git")
//	_ = repo.Delete(ctx, id)
package entries
