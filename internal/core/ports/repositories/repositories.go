package repositories

// RepositoryProvider aggregates the concrete repositories handed to the
// service layer at startup.
type RepositoryProvider struct {
	AccountRepo AccountRepository
	ClientRepo  ClientRepository
	LedgerRepo  LedgerRepository
}
