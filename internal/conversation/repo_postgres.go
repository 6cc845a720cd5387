package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"leadinbox/internal/channel"
	"leadinbox/pkg/utils"
)

// PostgresRepo is the durable Repository port. Uniqueness keys are enforced
// by the schema, so get-or-create is an upsert and concurrent first contact
// collapses onto one row at the database:
//
//	contacts       unique (tenant_key, external_contact_id)
//	conversations  unique (tenant_key, contact_id, channel)
//	messages       primary key external_message_id
//
// Single-row UPDATEs give the per-conversation write serialization the
// Repository contract asks for.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Get-or-create runs insert and select-back in one transaction so the row
// read is the row the upsert settled on, not a later state.
func (r *PostgresRepo) GetOrCreateContact(ctx context.Context, tenantKey, externalContactID string) (Contact, error) {
	c := Contact{
		ID:                uuid.NewString(),
		TenantKey:         tenantKey,
		ExternalContactID: externalContactID,
		CreatedAt:         time.Now().UTC(),
	}
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contacts (id, tenant_key, external_contact_id, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tenant_key, external_contact_id) DO NOTHING`,
			c.ID, c.TenantKey, c.ExternalContactID, c.CreatedAt)
		if err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `
			SELECT id, created_at FROM contacts
			WHERE tenant_key = $1 AND external_contact_id = $2`,
			tenantKey, externalContactID)
		return row.Scan(&c.ID, &c.CreatedAt)
	})
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (r *PostgresRepo) GetOrCreateConversation(ctx context.Context, contact Contact, ch channel.Channel) (Conversation, bool, error) {
	id := uuid.NewString()
	var (
		conv    Conversation
		created bool
	)
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO conversations
				(id, tenant_key, contact_id, contact_external_id, channel, status, overdue, ai_summary, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE, '', $7)
			ON CONFLICT (tenant_key, contact_id, channel) DO NOTHING`,
			id, contact.TenantKey, contact.ID, contact.ExternalContactID, string(ch), StatusNew, time.Now().UTC())
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			created = true
		}

		c, ok, err := r.scanConversation(tx.QueryRowContext(ctx, selectConversation+`
			WHERE tenant_key = $1 AND contact_id = $2 AND channel = $3`,
			contact.TenantKey, contact.ID, string(ch)))
		if err != nil {
			return err
		}
		if !ok {
			return sql.ErrNoRows
		}
		conv = c
		return nil
	})
	if err != nil {
		return Conversation{}, false, err
	}
	return conv, created, nil
}

func (r *PostgresRepo) AppendMessage(ctx context.Context, m Message) (bool, error) {
	meta, err := json.Marshal(m.Meta)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (external_message_id, conversation_id, direction, type, body, meta, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_message_id) DO NOTHING`,
		m.ExternalMessageID, m.ConversationID, string(m.Direction), string(m.Type), m.Body, meta, m.Timestamp)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const selectConversation = `
	SELECT id, tenant_key, contact_id, contact_external_id, channel, status,
	       COALESCE(intent, ''), lead_score,
	       last_customer_message_at, last_agent_message_at,
	       overdue, ai_summary, created_at
	FROM conversations`

func (r *PostgresRepo) ConversationByID(ctx context.Context, id string) (Conversation, bool, error) {
	return r.scanConversation(r.db.QueryRowContext(ctx, selectConversation+` WHERE id = $1`, id))
}

func (r *PostgresRepo) ConversationByMessageID(ctx context.Context, externalMessageID string) (Conversation, bool, error) {
	return r.scanConversation(r.db.QueryRowContext(ctx, selectConversation+`
		WHERE id = (SELECT conversation_id FROM messages WHERE external_message_id = $1)`,
		externalMessageID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepo) scanConversation(row rowScanner) (Conversation, bool, error) {
	var (
		c         Conversation
		ch        string
		intent    string
		score     sql.NullFloat64
		custAt    sql.NullTime
		agentAt   sql.NullTime
	)
	err := row.Scan(&c.ID, &c.TenantKey, &c.ContactID, &c.ContactExternalID, &ch, &c.Status,
		&intent, &score, &custAt, &agentAt, &c.Overdue, &c.AISummary, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, err
	}
	c.Channel = channel.Channel(ch)
	c.Intent = intent
	if score.Valid {
		v := score.Float64
		c.LeadScore = &v
	}
	if custAt.Valid {
		t := custAt.Time
		c.LastCustomerMessageAt = &t
	}
	if agentAt.Valid {
		t := agentAt.Time
		c.LastAgentMessageAt = &t
	}
	return c, true, nil
}

func (r *PostgresRepo) SetLastCustomerMessageAt(ctx context.Context, convID string, at time.Time) error {
	return r.updateOne(ctx, `UPDATE conversations SET last_customer_message_at = $2 WHERE id = $1`, convID, at)
}

func (r *PostgresRepo) SetLastAgentMessageAt(ctx context.Context, convID string, at time.Time, clearOverdue bool) error {
	if clearOverdue {
		return r.updateOne(ctx, `UPDATE conversations SET last_agent_message_at = $2, overdue = FALSE WHERE id = $1`, convID, at)
	}
	return r.updateOne(ctx, `UPDATE conversations SET last_agent_message_at = $2 WHERE id = $1`, convID, at)
}

func (r *PostgresRepo) SetIntent(ctx context.Context, convID, intent string, score float64) error {
	return r.updateOne(ctx, `UPDATE conversations SET intent = $2, lead_score = $3 WHERE id = $1`, convID, intent, score)
}

func (r *PostgresRepo) SetStatus(ctx context.Context, convID, status string) error {
	return r.updateOne(ctx, `UPDATE conversations SET status = $2 WHERE id = $1`, convID, status)
}

func (r *PostgresRepo) MarkOverdue(ctx context.Context, convID string) error {
	return r.updateOne(ctx, `UPDATE conversations SET overdue = TRUE WHERE id = $1`, convID)
}

func (r *PostgresRepo) updateOne(ctx context.Context, query, convID string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, append([]any{convID}, args...)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *PostgresRepo) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx, selectConversation+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, ok, err := r.scanConversation(rows)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListMessages(ctx context.Context, convID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT external_message_id, conversation_id, direction, type, body, meta, ts
		FROM messages WHERE conversation_id = $1 ORDER BY ts`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m    Message
			dir  string
			typ  string
			meta []byte
		)
		if err := rows.Scan(&m.ExternalMessageID, &m.ConversationID, &dir, &typ, &m.Body, &meta, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Direction = Direction(dir)
		m.Type = MessageType(typ)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &m.Meta)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Counts(ctx context.Context) (StoreCounts, error) {
	var sc StoreCounts
	row := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM conversations WHERE overdue)`)
	if err := row.Scan(&sc.Contacts, &sc.Conversations, &sc.Messages, &sc.Overdue); err != nil {
		return StoreCounts{}, err
	}
	return sc, nil
}
