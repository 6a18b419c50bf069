// Package chat is the Matrix shell around the conversation pipeline. It
// owns syncing, message delivery and the admission helpers (direct-message
// detection, addressing); everything conversational lives behind the
// MessageHandler it calls.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// BotName is the display name users address the bot by ("Lina").
	BotName string
	// DB is an optional SQLite connection used to persist the Matrix sync
	// token (next_batch) across restarts.  When nil, an in-memory store is
	// used and all room history will be replayed on every restart.
	DB *sql.DB
}

// Incoming is a text message received from a room, reduced to what the
// pipeline needs.
type Incoming struct {
	RoomID      string
	Sender      string
	Body        string
	EventID     string
	MentionsBot bool
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg Incoming)

// Client wraps the mautrix client.
type Client struct {
	client     *mautrix.Client
	config     *Config
	stopCh     chan struct{}
	msgHandler MessageHandler

	// memberMu guards members, a per-room set of joined users maintained
	// from m.room.member state events. Used for direct-message detection.
	memberMu sync.RWMutex
	members  map[id.RoomID]map[id.UserID]struct{}
}

// New creates a new Matrix client.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("chat: create client: %w", err)
	}

	c := &Client{
		client:  client,
		config:  config,
		stopCh:  make(chan struct{}),
		members: make(map[id.RoomID]map[id.UserID]struct{}),
	}

	// Attach a persistent sync store so the bot resumes from the last known
	// position after a restart instead of replaying the full room history.
	if config.DB != nil {
		client.Store = newDBSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start begins syncing with the Matrix homeserver.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.msgHandler = handler

	// NOTE: E2EE (end-to-end encryption) is not implemented. All messages
	// are sent and received in plaintext.
	slog.Warn("Matrix E2EE is not enabled; messages are transmitted in plaintext")

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)
	syncer.OnEventType(event.StateMember, c.handleMember)

	// Start syncing in background with exponential back-off reconnection.
	// Without retries a transient homeserver error would silently kill the
	// sync goroutine and leave the bot deaf to all new messages.
	go func() {
		const (
			backoffMin = 2 * time.Second
			backoffMax = 5 * time.Minute
		)
		backoff := backoffMin
		for {
			backoff = backoffMin // reset before each attempt
			if err := c.client.Sync(); err != nil {
				// Check whether Stop() was called; if so, exit cleanly.
				select {
				case <-c.stopCh:
					return
				default:
				}
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > backoffMax {
					backoff = backoffMax
				}
				continue
			}
			// Sync returned nil — only happens on a clean StopSync() call.
			return
		}
	}()

	return nil
}

// Stop stops the Matrix client.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// Send delivers text to a room, splitting it into ordered chunks when it
// exceeds MaxMessageRunes. Delivery stops at the first failed chunk so the
// caller can decide whether to retry the whole message.
func (c *Client) Send(ctx context.Context, roomID, text string) error {
	for _, chunk := range ChunkMessage(text) {
		if _, err := c.client.SendText(ctx, id.RoomID(roomID), chunk); err != nil {
			return fmt.Errorf("chat: send message: %w", err)
		}
	}
	return nil
}

// SignalComposing toggles the typing indicator in a room. The timeout
// tells the homeserver when to clear the indicator if we never do.
func (c *Client) SignalComposing(ctx context.Context, roomID string, typing bool, timeout time.Duration) error {
	_, err := c.client.UserTyping(ctx, id.RoomID(roomID), typing, timeout)
	if err != nil {
		return fmt.Errorf("chat: set typing: %w", err)
	}
	return nil
}

// IsDirectMessage reports whether the room looks like a one-on-one chat:
// at most two joined members as far as membership events have shown us.
// Unknown rooms count as direct so the bot errs toward answering.
func (c *Client) IsDirectMessage(roomID string) bool {
	c.memberMu.RLock()
	defer c.memberMu.RUnlock()
	set, ok := c.members[id.RoomID(roomID)]
	if !ok {
		return true
	}
	return len(set) <= 2
}

// IsAddressed reports whether an incoming message is directed at the bot.
func (c *Client) IsAddressed(msg Incoming) bool {
	return Addressed(msg.Body, c.config.BotName, msg.MentionsBot)
}

// UserID returns the client's user ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

// DisplayName gets a user's display name; falls back to the localpart is
// left to the caller.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := c.client.GetProfile(ctx, id.UserID(userID))
	if err != nil {
		return "", fmt.Errorf("chat: get profile: %w", err)
	}
	return profile.DisplayName, nil
}

// JoinRoom attempts to join a room.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	_, err := c.client.JoinRoomByID(ctx, id.RoomID(roomID))
	if err != nil {
		// M_FORBIDDEN is returned by homeservers when the bot is already a
		// member of the room. Use mautrix's typed error check instead of
		// string matching.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("JoinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return fmt.Errorf("chat: join room %s: %w", roomID, err)
	}
	return nil
}

// handleMessage filters incoming events down to foreign text messages and
// hands them to the registered handler.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}

	// Only process text messages
	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.MsgType != event.MsgText {
		return
	}

	if c.msgHandler == nil {
		return
	}

	mentioned := false
	if msgContent.Mentions != nil {
		for _, uid := range msgContent.Mentions.UserIDs {
			if uid == id.UserID(c.config.UserID) {
				mentioned = true
				break
			}
		}
	}
	c.msgHandler(ctx, Incoming{
		RoomID:      evt.RoomID.String(),
		Sender:      evt.Sender.String(),
		Body:        msgContent.Body,
		EventID:     evt.ID.String(),
		MentionsBot: mentioned,
	})
}

// handleMember keeps the per-room membership sets current.
func (c *Client) handleMember(ctx context.Context, evt *event.Event) {
	content := evt.Content.AsMember()
	if content == nil || evt.StateKey == nil {
		return
	}
	user := id.UserID(*evt.StateKey)

	c.memberMu.Lock()
	defer c.memberMu.Unlock()
	set, ok := c.members[evt.RoomID]
	if !ok {
		set = make(map[id.UserID]struct{})
		c.members[evt.RoomID] = set
	}
	switch content.Membership {
	case event.MembershipJoin:
		set[user] = struct{}{}
	case event.MembershipLeave, event.MembershipBan:
		delete(set, user)
	}
}
