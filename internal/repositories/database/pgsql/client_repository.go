package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accountly/bank_ledger_app/internal/apperrors"
	"github.com/accountly/bank_ledger_app/internal/core/domain"
	portsrepo "github.com/accountly/bank_ledger_app/internal/core/ports/repositories"
	"github.com/accountly/bank_ledger_app/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxClientRepository struct {
	pool *pgxpool.Pool
}

// newPgxClientRepository creates a new repository for client data.
func newPgxClientRepository(pool *pgxpool.Pool) portsrepo.ClientRepository {
	return &PgxClientRepository{pool: pool}
}

var _ portsrepo.ClientRepository = (*PgxClientRepository)(nil)

func toModelClient(d domain.Client) models.Client {
	return models.Client{
		ClientID:  d.ClientID,
		FullName:  d.FullName,
		JobTitle:  d.JobTitle,
		Blocked:   d.Blocked,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.CreatedAt,
	}
}

func toDomainClient(m models.Client) domain.Client {
	return domain.Client{
		ClientID:  m.ClientID,
		FullName:  m.FullName,
		JobTitle:  m.JobTitle,
		Blocked:   m.Blocked,
		CreatedAt: m.CreatedAt,
	}
}

// SaveClient inserts a new client.
func (r *PgxClientRepository) SaveClient(ctx context.Context, client domain.Client) error {
	modelClient := toModelClient(client)

	query := `
		INSERT INTO clients (client_id, full_name, job_title, blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.pool.Exec(ctx, query,
		modelClient.ClientID,
		modelClient.FullName,
		modelClient.JobTitle,
		modelClient.Blocked,
		modelClient.CreatedAt,
		modelClient.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: client with ID %s already exists", apperrors.ErrDuplicate, modelClient.ClientID)
		}
		return fmt.Errorf("failed to save client %s: %w", modelClient.ClientID, err)
	}
	return nil
}

// FindClientByID retrieves a client by its ID.
func (r *PgxClientRepository) FindClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	query := `
		SELECT client_id, full_name, job_title, blocked, created_at, updated_at
		FROM clients
		WHERE client_id = $1;
	`
	var modelClient models.Client
	err := r.pool.QueryRow(ctx, query, clientID).Scan(
		&modelClient.ClientID,
		&modelClient.FullName,
		&modelClient.JobTitle,
		&modelClient.Blocked,
		&modelClient.CreatedAt,
		&modelClient.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("client %s not found", clientID))
		}
		return nil, fmt.Errorf("failed to find client %s: %w", clientID, err)
	}

	client := toDomainClient(modelClient)
	return &client, nil
}

// SetClientBlocked updates the client's denormalized blocked flag.
func (r *PgxClientRepository) SetClientBlocked(ctx context.Context, clientID string, blocked bool, now time.Time) error {
	query := `
		UPDATE clients
		SET blocked = $2, updated_at = $3
		WHERE client_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, clientID, blocked, now)
	if err != nil {
		return fmt.Errorf("failed to update client %s block flag: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("client %s not found", clientID))
	}
	return nil
}
