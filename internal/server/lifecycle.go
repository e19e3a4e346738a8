package server

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"huddle/internal/database"
	"huddle/internal/stats"
	"huddle/internal/types"
)

// some gateways hand over this placeholder when they never assigned an id
const unknownConnectionId = "unknown"

// Lifecycle owns the connection registry records. Nothing else mutates them.
type Lifecycle struct {
	db    database.HuddleRepository
	log   *log.Logger
	stats stats.StatsProvider
}

func NewLifecycle(db database.HuddleRepository, logger *log.Logger, sp stats.StatsProvider) *Lifecycle {
	return &Lifecycle{
		db:    db,
		log:   logger,
		stats: sp,
	}
}

// Connect registers a connection for a user in a workspace and returns the
// stored record. A repeated connect for an already-active connection id is
// idempotent. Any other prior connections for the same (workspace, user)
// pair are superseded and deleted, so a reconnect after a network blip or
// tab refresh cannot accumulate stale registry rows.
func (l *Lifecycle) Connect(workspaceId, userId, connectionId string) (types.Connection, error) {
	if workspaceId == "" || userId == "" || connectionId == "" || connectionId == unknownConnectionId {
		return types.Connection{}, ErrMissingParams
	}

	existing, err := l.db.GetConnection(connectionId)
	if err == nil && types.ActiveStatus(existing.Status) {
		// duplicate connect retry from the transport layer
		return connectionFromDB(existing), nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return types.Connection{}, storageError("get connection", err)
	}

	prior, err := l.db.ListUserConnections(workspaceId, userId)
	if err != nil {
		return types.Connection{}, storageError("list user connections", err)
	}

	for _, conn := range prior {
		if conn.ConnectionId == connectionId {
			continue
		}
		l.log.Printf("evicting superseded connection %q for user %q in workspace %q",
			conn.ConnectionId, userId, workspaceId)
		if err := l.db.DeleteConnection(conn.ConnectionId); err != nil {
			return types.Connection{}, storageError("delete superseded connection", err)
		}
		l.stats.Incr(MetricConnectionsEvicted)
	}

	record := database.Connection{
		ConnectionId: connectionId,
		WorkspaceId:  workspaceId,
		UserId:       userId,
		Status:       types.StatusConnected,
		LastSeenAt:   time.Now().UTC(),
	}
	if err := l.db.PutConnection(record); err != nil {
		return types.Connection{}, storageError("put connection", err)
	}

	// read back to confirm durability before acknowledging; an eventually
	// consistent store may not return the row yet
	stored, err := l.db.GetConnection(connectionId)
	if err != nil {
		return types.Connection{}, storageError("verify connection", err)
	}

	return connectionFromDB(stored), nil
}

// Disconnect removes the registry record. Deleting a connection that was
// already removed is not an error.
func (l *Lifecycle) Disconnect(connectionId string) error {
	if connectionId == "" {
		return ErrMissingParams
	}

	if err := l.db.DeleteConnection(connectionId); err != nil {
		return storageError("delete connection", err)
	}

	return nil
}

// Connection resolves a registered connection by id.
func (l *Lifecycle) Connection(connectionId string) (types.Connection, error) {
	conn, err := l.db.GetConnection(connectionId)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return types.Connection{}, storageError("get connection", err)
	}

	return connectionFromDB(conn), nil
}

// UpdatePresence stores a caller-supplied status on a registered
// connection. Status values are not validated beyond non-empty; the
// broadcaster treats connected/online as equivalently live.
func (l *Lifecycle) UpdatePresence(connectionId, status string) (types.Connection, error) {
	if connectionId == "" || status == "" {
		return types.Connection{}, ErrMissingParams
	}

	conn, err := l.Connection(connectionId)
	if err != nil {
		return types.Connection{}, err
	}

	now := time.Now().UTC()
	if err := l.db.UpdateConnectionStatus(connectionId, status, now); err != nil {
		return types.Connection{}, storageError("update connection status", err)
	}

	conn.Status = status
	conn.LastSeenAt = now
	return conn, nil
}

func connectionFromDB(conn database.Connection) types.Connection {
	return types.Connection{
		ConnectionId: conn.ConnectionId,
		WorkspaceId:  conn.WorkspaceId,
		UserId:       conn.UserId,
		Status:       conn.Status,
		LastSeenAt:   conn.LastSeenAt,
	}
}
