package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"huddle/internal/database"
	"huddle/internal/stats"
)

// Transport delivers an already-encoded payload to one live connection
// endpoint. A Send returning ErrPeerGone means the remote endpoint no
// longer exists; any other error is treated as transient.
type Transport interface {
	Send(ctx context.Context, connectionId string, data []byte) error
}

// Broadcaster fans a payload out to every live connection in a workspace.
// Delivery attempts run concurrently and fail independently; durability is
// never gated on delivery, so a partial broadcast is not an error. Peers
// whose transport reports them gone are reclaimed from the registry, and a
// client that missed a push catches up from the message log on next load.
type Broadcaster struct {
	db        database.HuddleRepository
	transport Transport
	log       *log.Logger
	stats     stats.StatsProvider
}

func NewBroadcaster(db database.HuddleRepository, transport Transport, logger *log.Logger, sp stats.StatsProvider) *Broadcaster {
	return &Broadcaster{
		db:        db,
		transport: transport,
		log:       logger,
		stats:     sp,
	}
}

// Broadcast pushes a frame to every active connection in the workspace,
// except excludeConnectionId when given. It never returns an error; the
// aggregate result exists for observability.
func (b *Broadcaster) Broadcast(ctx context.Context, workspaceId string, push *Push, excludeConnectionId string) BroadcastResult {
	data, err := json.Marshal(push)
	if err != nil {
		b.log.Printf("marshal push for workspace %q: %v", workspaceId, err)
		return BroadcastResult{}
	}

	conns, err := b.db.ListWorkspaceConnections(workspaceId, true)
	if err != nil {
		b.log.Printf("list connections for workspace %q: %v", workspaceId, err)
		return BroadcastResult{}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		details []DeliveryResult
	)

	for _, conn := range conns {
		if conn.ConnectionId == excludeConnectionId {
			continue
		}

		wg.Add(1)
		go func(conn database.Connection) {
			defer wg.Done()
			res := b.deliver(ctx, conn.ConnectionId, data)
			mu.Lock()
			details = append(details, res)
			mu.Unlock()
		}(conn)
	}
	wg.Wait()

	agg := BroadcastResult{Total: len(details), Details: details}
	for _, res := range details {
		if res.Success {
			agg.Successful++
		} else {
			agg.Failed++
		}
	}

	return agg
}

func (b *Broadcaster) deliver(ctx context.Context, connectionId string, data []byte) DeliveryResult {
	err := b.transport.Send(ctx, connectionId, data)
	if err == nil {
		b.stats.Incr(MetricDeliveriesSucceeded)
		return DeliveryResult{ConnectionId: connectionId, Success: true}
	}

	b.stats.Incr(MetricDeliveriesFailed)
	res := DeliveryResult{ConnectionId: connectionId, Error: err.Error()}

	if errors.Is(err, ErrPeerGone) {
		// self-healing cleanup: the registry entry points at a dead peer
		res.Gone = true
		b.log.Printf("reclaiming stale connection %q", connectionId)
		if derr := b.db.DeleteConnection(connectionId); derr != nil {
			b.log.Printf("delete stale connection %q: %v", connectionId, derr)
		} else {
			b.stats.Incr(MetricStaleConnectionsReclaimed)
		}
		return res
	}

	// transient failure: leave the registry entry intact, it may recover
	// or be cleaned up on the next connect cycle
	b.log.Printf("delivery to %q failed: %v", connectionId, err)
	return res
}
