// Package services contains the application services behind the CLI:
// account registration and login (AuthService), vault management
// (VaultService), credential entries with field encryption and access
// filtering (EntryService), and demo data seeding (SeedService).
//
// Services hold a *sql.DB and build repositories per call, binding them to a
// transaction whenever an operation touches more than one row.
package services
