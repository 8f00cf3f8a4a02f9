package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/observability"
)

// Unique index names used to classify 23505s into the right conflict kind.
// The application-level duplicate checks run first; these are the backstop
// for the check-then-insert race.
const (
	emailUniqConstraint    = "registrations_email_uniq"
	whatsappUniqConstraint = "registrations_whatsapp_uniq"
	txnUniqConstraint      = "registrations_txn_uniq"
)

type RegistrationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RegistrationsRepo {
	return &RegistrationsRepo{pool: pool, prom: prom}
}

func (repo *RegistrationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

const regColumns = `id, name, email, whatsapp_number, gender, cohort,
	adults, children, infants, guests, extension,
	contribution_amount, payment_status, payment_transaction_id,
	verified, verification_date, verified_by, is_email_sent,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (registration.Registration, error) {
	var r registration.Registration
	var guests, extension []byte

	err := row.Scan(
		&r.ID, &r.Name, &r.Email, &r.WhatsappNumber, &r.Gender, &r.Cohort,
		&r.Attendees.Adults, &r.Attendees.Children, &r.Attendees.Infants,
		&guests, &extension,
		&r.ContributionAmount, &r.PaymentStatus, &r.PaymentTransactionID,
		&r.Verified, &r.VerificationDate, &r.VerifiedBy, &r.IsEmailSent,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return registration.Registration{}, err
	}

	if len(guests) > 0 {
		if err := json.Unmarshal(guests, &r.Guests); err != nil {
			return registration.Registration{}, fmt.Errorf("decode guests: %w", err)
		}
	}
	if len(extension) > 0 {
		if err := json.Unmarshal(extension, &r.Extension); err != nil {
			return registration.Registration{}, fmt.Errorf("decode extension: %w", err)
		}
	}

	return r, nil
}

func classifyUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case emailUniqConstraint, whatsappUniqConstraint:
		return registration.ErrDuplicateContact
	case txnUniqConstraint:
		return registration.ErrDuplicateTransaction
	}
	return err
}

func (repo *RegistrationsRepo) Insert(ctx context.Context, reg registration.Registration) (err error) {
	guests, err := json.Marshal(reg.Guests)
	if err != nil {
		return err
	}
	extension, err := json.Marshal(reg.Extension)
	if err != nil {
		return err
	}

	err = repo.observe("registrations.insert", func() error {
		_, e := repo.pool.Exec(ctx, `
			INSERT INTO registrations (`+regColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		`,
			reg.ID, reg.Name, reg.Email, reg.WhatsappNumber, reg.Gender, reg.Cohort,
			reg.Attendees.Adults, reg.Attendees.Children, reg.Attendees.Infants,
			guests, extension,
			reg.ContributionAmount, reg.PaymentStatus, reg.PaymentTransactionID,
			reg.Verified, reg.VerificationDate, reg.VerifiedBy, reg.IsEmailSent,
			reg.CreatedAt, reg.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return classifyUniqueViolation(err)
	}
	return nil
}

func (repo *RegistrationsRepo) GetByID(ctx context.Context, id string) (reg registration.Registration, err error) {
	err = repo.observe("registrations.get_by_id", func() error {
		var scanErr error
		reg, scanErr = scanRegistration(repo.pool.QueryRow(ctx,
			`SELECT `+regColumns+` FROM registrations WHERE id = $1`, id))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = registration.ErrNotFound
		}
		return
	}
	return
}

// FindContactConflict returns the public-safe fields of any other
// registration sharing the email or whatsapp number. excludeID may be empty
// on create. A nil conflict with nil error means no collision.
func (repo *RegistrationsRepo) FindContactConflict(ctx context.Context, email, whatsapp, excludeID string) (*registration.ContactConflict, error) {
	var c registration.ContactConflict

	err := repo.observe("registrations.contact_conflict", func() error {
		return repo.pool.QueryRow(ctx, `
			SELECT email, whatsapp_number, created_at
			FROM registrations
			WHERE (lower(email) = lower($1) OR whatsapp_number = $2)
			  AND ($3 = '' OR id <> $3)
			LIMIT 1
		`, email, whatsapp, excludeID).Scan(&c.Email, &c.WhatsappNumber, &c.RegisteredAt)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TransactionIDInUse reports whether another registration already claimed
// the transaction id. Nothing about the matching record is disclosed.
func (repo *RegistrationsRepo) TransactionIDInUse(ctx context.Context, txnID, excludeID string) (bool, error) {
	var exists bool
	err := repo.observe("registrations.txn_in_use", func() error {
		return repo.pool.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM registrations
				WHERE payment_transaction_id = $1
				  AND ($2 = '' OR id <> $2)
			)
		`, txnID, excludeID).Scan(&exists)
	})
	return exists, err
}

// FindByReference is the public self-check lookup: the key is either an
// email (matched case-insensitively) or a payment transaction id.
func (repo *RegistrationsRepo) FindByReference(ctx context.Context, ref string) (reg registration.Registration, err error) {
	err = repo.observe("registrations.find_by_reference", func() error {
		var scanErr error
		reg, scanErr = scanRegistration(repo.pool.QueryRow(ctx, `
			SELECT `+regColumns+` FROM registrations
			WHERE lower(email) = lower($1) OR payment_transaction_id = $1
			LIMIT 1
		`, ref))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = registration.ErrNotFound
		}
		return
	}
	return
}

var sortColumns = map[string]string{
	"createdAt":          "created_at",
	"name":               "name",
	"email":              "email",
	"contributionAmount": "contribution_amount",
}

// List applies the admin filters with AND semantics, the free-text search
// with OR semantics across the text fields, and offset pagination. It also
// returns the total matching count for page-count computation.
func (repo *RegistrationsRepo) List(ctx context.Context, q registration.ListQuery) (regs []registration.Registration, total int, err error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 6)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.PaymentStatus != "" {
		where = append(where, "payment_status = "+arg(q.PaymentStatus))
	}
	if q.Verified != nil {
		where = append(where, "verified = "+arg(*q.Verified))
	}
	if q.Cohort != "" {
		where = append(where, "cohort = "+arg(q.Cohort))
	}
	if q.Search != "" {
		p := arg("%" + q.Search + "%")
		where = append(where,
			"(name ILIKE "+p+" OR email ILIKE "+p+" OR whatsapp_number ILIKE "+p+" OR cohort ILIKE "+p+")")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	err = repo.observe("registrations.list.count", func() error {
		return repo.pool.QueryRow(ctx, "SELECT COUNT(*) FROM registrations"+whereSQL, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	listArgs := append(args, q.Limit, q.Offset())
	query := fmt.Sprintf(
		"SELECT %s FROM registrations%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		regColumns, whereSQL, col, dir, dir, len(args)+1, len(args)+2,
	)

	var rows pgx.Rows
	err = repo.observe("registrations.list", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, query, listArgs...)
		return qerr
	})
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	regs = make([]registration.Registration, 0, q.Limit)
	for rows.Next() {
		r, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		regs = append(regs, r)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return regs, total, nil
}

// Update persists the full merged record; partial-merge semantics are the
// caller's job (fetch, apply, update).
func (repo *RegistrationsRepo) Update(ctx context.Context, reg registration.Registration) (err error) {
	guests, err := json.Marshal(reg.Guests)
	if err != nil {
		return err
	}
	extension, err := json.Marshal(reg.Extension)
	if err != nil {
		return err
	}

	var tag pgconn.CommandTag
	err = repo.observe("registrations.update", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `
			UPDATE registrations SET
				name = $2, email = $3, whatsapp_number = $4, gender = $5, cohort = $6,
				adults = $7, children = $8, infants = $9, guests = $10, extension = $11,
				contribution_amount = $12, payment_status = $13, payment_transaction_id = $14,
				verified = $15, verification_date = $16, verified_by = $17, is_email_sent = $18,
				updated_at = now()
			WHERE id = $1
		`,
			reg.ID, reg.Name, reg.Email, reg.WhatsappNumber, reg.Gender, reg.Cohort,
			reg.Attendees.Adults, reg.Attendees.Children, reg.Attendees.Infants,
			guests, extension,
			reg.ContributionAmount, reg.PaymentStatus, reg.PaymentTransactionID,
			reg.Verified, reg.VerificationDate, reg.VerifiedBy, reg.IsEmailSent,
		)
		return e
	})

	if err != nil {
		return classifyUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return registration.ErrNotFound
	}
	return nil
}

func (repo *RegistrationsRepo) Delete(ctx context.Context, id string) (err error) {
	var tag pgconn.CommandTag
	err = repo.observe("registrations.delete", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return
	}
	if tag.RowsAffected() == 0 {
		return registration.ErrNotFound
	}
	return nil
}

// MarkEmailSent flips the notification flag after a successful send.
func (repo *RegistrationsRepo) MarkEmailSent(ctx context.Context, id string) error {
	return repo.observe("registrations.mark_email_sent", func() error {
		_, e := repo.pool.Exec(ctx,
			`UPDATE registrations SET is_email_sent = true, updated_at = now() WHERE id = $1`, id)
		return e
	})
}

// ListAll returns every registration newest first, for the export.
func (repo *RegistrationsRepo) ListAll(ctx context.Context) (regs []registration.Registration, err error) {
	var rows pgx.Rows
	err = repo.observe("registrations.list_all", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
			SELECT `+regColumns+` FROM registrations
			ORDER BY created_at DESC, id DESC
		`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs = make([]registration.Registration, 0)
	for rows.Next() {
		r, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// ListUnnotified returns every registration still awaiting its confirmation
// email, oldest first, for the sweep.
func (repo *RegistrationsRepo) ListUnnotified(ctx context.Context) (regs []registration.Registration, err error) {
	var rows pgx.Rows
	err = repo.observe("registrations.list_unnotified", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
			SELECT `+regColumns+` FROM registrations
			WHERE is_email_sent = false
			ORDER BY created_at ASC, id ASC
		`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs = make([]registration.Registration, 0)
	for rows.Next() {
		r, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// Totals returns the headline counters for the stats summary.
func (repo *RegistrationsRepo) Totals(ctx context.Context) (t registration.Totals, err error) {
	err = repo.observe("registrations.totals", func() error {
		return repo.pool.QueryRow(ctx, `
			SELECT COUNT(*), COALESCE(SUM(contribution_amount), 0)
			FROM registrations
		`).Scan(&t.TotalRegistrations, &t.TotalAmount)
	})
	return
}

func (repo *RegistrationsRepo) CountByPaymentStatus(ctx context.Context) ([]registration.GroupCount, error) {
	return repo.groupCount(ctx, "registrations.count_by_payment_status", `
		SELECT payment_status, COUNT(*) FROM registrations
		GROUP BY payment_status ORDER BY payment_status
	`)
}

func (repo *RegistrationsRepo) CountByVerified(ctx context.Context) (out []registration.VerifiedCount, err error) {
	var rows pgx.Rows
	err = repo.observe("registrations.count_by_verified", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
			SELECT verified, COUNT(*) FROM registrations
			GROUP BY verified ORDER BY verified
		`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]registration.VerifiedCount, 0, 2)
	for rows.Next() {
		var v registration.VerifiedCount
		if scanErr := rows.Scan(&v.Verified, &v.Count); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountByCohort returns the full cohort distribution ordered by the cohort
// key, which keeps ordinal labels (Batch 1, Batch 2, ...) in a stable order.
func (repo *RegistrationsRepo) CountByCohort(ctx context.Context) ([]registration.GroupCount, error) {
	return repo.groupCount(ctx, "registrations.count_by_cohort", `
		SELECT cohort, COUNT(*) FROM registrations
		GROUP BY cohort ORDER BY cohort
	`)
}

func (repo *RegistrationsRepo) CountByRegistrationType(ctx context.Context) ([]registration.GroupCount, error) {
	return repo.groupCount(ctx, "registrations.count_by_registration_type", `
		SELECT t, COUNT(*)
		FROM registrations,
		     jsonb_array_elements_text(extension->'registrationTypes') AS t
		GROUP BY t ORDER BY COUNT(*) DESC
	`)
}

// Extension keys exposed to grouping. The key is interpolated into the
// query, so only allow-listed values ever reach SQL.
var extensionGroupKeys = map[string]bool{
	"houseColor": true,
	"district":   true,
}

// CountByExtensionKey groups on one JSONB extension field, skipping rows
// where the field is absent or empty. limit > 0 caps the result to the
// top-N buckets by count; limit <= 0 returns the full distribution ordered
// by key.
func (repo *RegistrationsRepo) CountByExtensionKey(ctx context.Context, key string, limit int) ([]registration.GroupCount, error) {
	if !extensionGroupKeys[key] {
		return nil, fmt.Errorf("unsupported grouping key %q", key)
	}

	query := fmt.Sprintf(`
		SELECT extension->>'%s' AS k, COUNT(*)
		FROM registrations
		WHERE COALESCE(extension->>'%s', '') <> ''
		GROUP BY k
	`, key, key)

	if limit > 0 {
		query += fmt.Sprintf(" ORDER BY COUNT(*) DESC LIMIT %d", limit)
	} else {
		query += " ORDER BY k"
	}

	return repo.groupCount(ctx, "registrations.count_by_"+key, query)
}

func (repo *RegistrationsRepo) groupCount(ctx context.Context, op, query string) (out []registration.GroupCount, err error) {
	var rows pgx.Rows
	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, query)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]registration.GroupCount, 0)
	for rows.Next() {
		var g registration.GroupCount
		if scanErr := rows.Scan(&g.Key, &g.Count); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
