package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
)

// errRejected is returned when the server closes the connection before the
// join completes: the session id or the secret was not recognised.
var errRejected = errors.New("connection closed by server: unknown session or secret")

// joinedEvent ends the snapshot sent after a successful join
const joinedEvent = "connection"

func newWatchCmd() *cobra.Command {
	var (
		secret string
		window time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Join a session and stream its live events",
		Long: `Join a session with a host, captain or spectator secret and print every event
the server pushes. Runs until the session ends, --for elapses, or Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := liveContext(cmd.Context(), window)
			defer cancel()

			return runLive(ctx, args[0], secret, nil)
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Secret to join with")
	cmd.Flags().DurationVar(&window, "for", 0, "Stop after this long (0 waits until interrupted)")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		secret string
		linger time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <session-id> <event> [payload]",
		Short: "Join a session, send one action and print the resulting events",
		Long: `Join a session, wait for the join snapshot, send one action and keep printing
events until --linger elapses.

The payload is sent as JSON when it parses as JSON and as a string otherwise,
so player names can be passed bare. Quote numeric names: '"42"'.`,
		Example: `  draftctl send abc123 --secret HOSTSECRET add "Jane Doe"
  draftctl send abc123 --secret CAPTAINSECRET pick "Jane Doe"
  draftctl send abc123 --secret HOSTSECRET editCaptainName '{"id":"x1","name":"Ann"}'`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload json.RawMessage
			if len(args) == 3 {
				payload = parsePayload(args[2])
			}

			ctx, cancel := liveContext(cmd.Context(), 0)
			defer cancel()

			return runLive(ctx, args[0], secret, &action{
				event:   args[1],
				payload: payload,
				linger:  linger,
			})
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Secret to join with")
	cmd.Flags().DurationVar(&linger, "linger", 2*time.Second, "How long to keep printing events after sending")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

// action is sent once the join snapshot has arrived
type action struct {
	event   string
	payload json.RawMessage
	linger  time.Duration
}

// clientFrame is a frame sent to the server
type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func liveContext(parent context.Context, window time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if window <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, window)
	return ctx, func() {
		cancel()
		stop()
	}
}

// runLive joins a session and prints events until ctx ends or the server
// closes the connection. When act is set it is sent after the join snapshot
// and the run ends once its linger has elapsed.
func runLive(ctx context.Context, sessionID, secret string, act *action) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := client.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	if err := writeFrame(ctx, conn, "selectMatch", sessionID); err != nil {
		return err
	}
	if err := writeFrame(ctx, conn, "selectRole", secret); err != nil {
		return err
	}

	joined := false
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case !joined:
				return errRejected
			case websocket.CloseStatus(err) != -1:
				out.PrintMessage("Session closed")
				return nil
			default:
				return fmt.Errorf("read failed: %w", err)
			}
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil || evt.Event == "" {
			continue
		}
		evt.Time = time.Now()
		out.Print(evt)

		if evt.Event != joinedEvent || joined {
			continue
		}
		joined = true
		if act == nil {
			continue
		}
		if err := writeRaw(ctx, conn, act.event, act.payload); err != nil {
			return err
		}
		time.AfterFunc(act.linger, cancel)
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", event, err)
	}
	return writeRaw(ctx, conn, event, raw)
}

func writeRaw(ctx context.Context, conn *websocket.Conn, event string, data json.RawMessage) error {
	if data == nil {
		data = json.RawMessage("null")
	}
	frame, err := json.Marshal(clientFrame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", event, err)
	}
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

// parsePayload keeps valid JSON as is and encodes anything else as a string
func parsePayload(arg string) json.RawMessage {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	raw, _ := json.Marshal(arg)
	return raw
}
