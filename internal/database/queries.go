package database

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

func (db *PgHuddleRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email, created_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgHuddleRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgHuddleRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
	)

	return user, err
}

func (db *PgHuddleRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
	)

	return user, err
}

func (db *PgHuddleRepository) GetConnection(connectionId string) (Connection, error) {
	row := db.conn.QueryRow(
		"SELECT connection_id, workspace_id, user_id, status, last_seen_at "+
			"FROM connections WHERE connection_id = $1 LIMIT 1",
		connectionId,
	)

	var conn Connection
	err := row.Scan(
		&conn.ConnectionId,
		&conn.WorkspaceId,
		&conn.UserId,
		&conn.Status,
		&conn.LastSeenAt,
	)

	return conn, err
}

func (db *PgHuddleRepository) PutConnection(conn Connection) error {
	_, err := db.conn.Exec(
		"INSERT INTO connections (connection_id, workspace_id, user_id, status, last_seen_at) "+
			"VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (connection_id) DO UPDATE "+
			"SET workspace_id = $2, user_id = $3, status = $4, last_seen_at = $5",
		conn.ConnectionId,
		conn.WorkspaceId,
		conn.UserId,
		conn.Status,
		conn.LastSeenAt,
	)

	return err
}

func (db *PgHuddleRepository) DeleteConnection(connectionId string) error {
	// deleting a non-existent connection is not an error
	_, err := db.conn.Exec(
		"DELETE FROM connections WHERE connection_id = $1",
		connectionId,
	)

	return err
}

func (db *PgHuddleRepository) UpdateConnectionStatus(connectionId, status string, lastSeenAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE connections SET status = $2, last_seen_at = $3 "+
			"WHERE connection_id = $1",
		connectionId,
		status,
		lastSeenAt,
	)

	return err
}

func (db *PgHuddleRepository) ListWorkspaceConnections(workspaceId string, activeOnly bool) ([]Connection, error) {
	query := "SELECT connection_id, workspace_id, user_id, status, last_seen_at " +
		"FROM connections WHERE workspace_id = $1"
	if activeOnly {
		query += " AND status IN ('connected', 'online')"
	}

	rows, err := db.conn.Query(query, workspaceId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanConnections(rows)
}

func (db *PgHuddleRepository) ListUserConnections(workspaceId, userId string) ([]Connection, error) {
	rows, err := db.conn.Query(
		"SELECT connection_id, workspace_id, user_id, status, last_seen_at "+
			"FROM connections WHERE workspace_id = $1 AND user_id = $2",
		workspaceId,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanConnections(rows)
}

func scanConnections(rows *sql.Rows) ([]Connection, error) {
	var conns []Connection
	for rows.Next() {
		var conn Connection
		if err := rows.Scan(
			&conn.ConnectionId,
			&conn.WorkspaceId,
			&conn.UserId,
			&conn.Status,
			&conn.LastSeenAt,
		); err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

func (db *PgHuddleRepository) CreateMessage(msg Message) error {
	_, err := db.conn.Exec(
		"INSERT INTO messages (channel_id, ts, user_id, content, attachments) "+
			"VALUES ($1, $2, $3, $4, $5)",
		msg.ChannelId,
		msg.Timestamp,
		msg.UserId,
		msg.Content,
		pq.Array(msg.Attachments),
	)

	return err
}

func (db *PgHuddleRepository) GetMessage(channelId, timestamp string) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT channel_id, ts, user_id, content, attachments, edited, deleted, thread_count "+
			"FROM messages WHERE channel_id = $1 AND ts = $2 LIMIT 1",
		channelId,
		timestamp,
	)

	var msg Message
	err := row.Scan(
		&msg.ChannelId,
		&msg.Timestamp,
		&msg.UserId,
		&msg.Content,
		pq.Array(&msg.Attachments),
		&msg.Edited,
		&msg.Deleted,
		&msg.ThreadCount,
	)

	return msg, err
}

func (db *PgHuddleRepository) UpdateMessageContent(channelId, timestamp, content string) (Message, error) {
	row := db.conn.QueryRow(
		"UPDATE messages SET content = $3, edited = TRUE "+
			"WHERE channel_id = $1 AND ts = $2 "+
			"RETURNING channel_id, ts, user_id, content, attachments, edited, deleted, thread_count",
		channelId,
		timestamp,
		content,
	)

	var msg Message
	err := row.Scan(
		&msg.ChannelId,
		&msg.Timestamp,
		&msg.UserId,
		&msg.Content,
		pq.Array(&msg.Attachments),
		&msg.Edited,
		&msg.Deleted,
		&msg.ThreadCount,
	)

	return msg, err
}

func (db *PgHuddleRepository) SoftDeleteMessage(channelId, timestamp, placeholder string) (Message, error) {
	// attachments and thread_count are kept for history and ordering references
	row := db.conn.QueryRow(
		"UPDATE messages SET content = $3, deleted = TRUE "+
			"WHERE channel_id = $1 AND ts = $2 "+
			"RETURNING channel_id, ts, user_id, content, attachments, edited, deleted, thread_count",
		channelId,
		timestamp,
		placeholder,
	)

	var msg Message
	err := row.Scan(
		&msg.ChannelId,
		&msg.Timestamp,
		&msg.UserId,
		&msg.Content,
		pq.Array(&msg.Attachments),
		&msg.Edited,
		&msg.Deleted,
		&msg.ThreadCount,
	)

	return msg, err
}

func (db *PgHuddleRepository) IncrementThreadCount(channelId, timestamp string) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET thread_count = thread_count + 1 "+
			"WHERE channel_id = $1 AND ts = $2",
		channelId,
		timestamp,
	)

	return err
}

func (db *PgHuddleRepository) ListChannelMessages(channelId, since string, limit int) ([]Message, error) {
	var query string
	args := []any{channelId}
	if since != "" {
		query = "SELECT channel_id, ts, user_id, content, attachments, edited, deleted, thread_count " +
			"FROM messages WHERE channel_id = $1 AND ts > $2 ORDER BY ts ASC LIMIT $3"
		args = append(args, since, limit)
	} else {
		query = "SELECT channel_id, ts, user_id, content, attachments, edited, deleted, thread_count " +
			"FROM messages WHERE channel_id = $1 ORDER BY ts DESC LIMIT $2"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.ChannelId,
			&msg.Timestamp,
			&msg.UserId,
			&msg.Content,
			pq.Array(&msg.Attachments),
			&msg.Edited,
			&msg.Deleted,
			&msg.ThreadCount,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

func (db *PgHuddleRepository) CreateThreadMessage(msg ThreadMessage) error {
	_, err := db.conn.Exec(
		"INSERT INTO thread_messages (parent_message_id, ts, user_id, content, attachments) "+
			"VALUES ($1, $2, $3, $4, $5)",
		msg.ParentMessageId,
		msg.Timestamp,
		msg.UserId,
		msg.Content,
		pq.Array(msg.Attachments),
	)

	return err
}

func (db *PgHuddleRepository) GetThreadMessage(parentMessageId, timestamp string) (ThreadMessage, error) {
	row := db.conn.QueryRow(
		"SELECT parent_message_id, ts, user_id, content, attachments, edited, deleted "+
			"FROM thread_messages WHERE parent_message_id = $1 AND ts = $2 LIMIT 1",
		parentMessageId,
		timestamp,
	)

	var msg ThreadMessage
	err := row.Scan(
		&msg.ParentMessageId,
		&msg.Timestamp,
		&msg.UserId,
		&msg.Content,
		pq.Array(&msg.Attachments),
		&msg.Edited,
		&msg.Deleted,
	)

	return msg, err
}

func (db *PgHuddleRepository) UpdateThreadMessageContent(parentMessageId, timestamp, content string) (ThreadMessage, error) {
	row := db.conn.QueryRow(
		"UPDATE thread_messages SET content = $3, edited = TRUE "+
			"WHERE parent_message_id = $1 AND ts = $2 "+
			"RETURNING parent_message_id, ts, user_id, content, attachments, edited, deleted",
		parentMessageId,
		timestamp,
		content,
	)

	var msg ThreadMessage
	err := row.Scan(
		&msg.ParentMessageId,
		&msg.Timestamp,
		&msg.UserId,
		&msg.Content,
		pq.Array(&msg.Attachments),
		&msg.Edited,
		&msg.Deleted,
	)

	return msg, err
}

func (db *PgHuddleRepository) SoftDeleteThreadMessage(parentMessageId, timestamp, placeholder string) (ThreadMessage, error) {
	row := db.conn.QueryRow(
		"UPDATE thread_messages SET content = $3, deleted = TRUE "+
			"WHERE parent_message_id = $1 AND ts = $2 "+
			"RETURNING parent_message_id, ts, user_id, content, attachments, edited, deleted",
		parentMessageId,
		timestamp,
		placeholder,
	)

	var msg ThreadMessage
	err := row.Scan(
		&msg.ParentMessageId,
		&msg.Timestamp,
		&msg.UserId,
		&msg.Content,
		pq.Array(&msg.Attachments),
		&msg.Edited,
		&msg.Deleted,
	)

	return msg, err
}

func (db *PgHuddleRepository) ListThreadMessages(parentMessageId string) ([]ThreadMessage, error) {
	rows, err := db.conn.Query(
		"SELECT parent_message_id, ts, user_id, content, attachments, edited, deleted "+
			"FROM thread_messages WHERE parent_message_id = $1 ORDER BY ts ASC",
		parentMessageId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ThreadMessage
	for rows.Next() {
		var msg ThreadMessage
		if err := rows.Scan(
			&msg.ParentMessageId,
			&msg.Timestamp,
			&msg.UserId,
			&msg.Content,
			pq.Array(&msg.Attachments),
			&msg.Edited,
			&msg.Deleted,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

func (db *PgHuddleRepository) PutChannelRead(read ChannelRead) error {
	_, err := db.conn.Exec(
		"INSERT INTO channel_reads (channel_id, user_id, workspace_id, last_read_message_id, last_read_at) "+
			"VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (channel_id, user_id) DO UPDATE "+
			"SET workspace_id = $3, last_read_message_id = $4, last_read_at = $5",
		read.ChannelId,
		read.UserId,
		read.WorkspaceId,
		read.LastReadMessageId,
		read.LastReadAt,
	)

	return err
}

func (db *PgHuddleRepository) ListChannelReads(channelId string) ([]ChannelRead, error) {
	rows, err := db.conn.Query(
		"SELECT channel_id, user_id, workspace_id, last_read_message_id, last_read_at "+
			"FROM channel_reads WHERE channel_id = $1",
		channelId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reads []ChannelRead
	for rows.Next() {
		var read ChannelRead
		if err := rows.Scan(
			&read.ChannelId,
			&read.UserId,
			&read.WorkspaceId,
			&read.LastReadMessageId,
			&read.LastReadAt,
		); err != nil {
			return nil, err
		}
		reads = append(reads, read)
	}

	return reads, rows.Err()
}
