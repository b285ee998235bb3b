package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/session"
)

// handler applies one inbound action inside the session lock
type handler func(tx *session.Tx, role model.Role, msg model.ClientMessage) error

type action struct {
	allowed model.RoleKind
	apply   handler
}

var actions = map[string]action{
	model.EventAdd:             {allowed: model.RoleHost, apply: handleAdd},
	model.EventRemove:          {allowed: model.RoleHost, apply: handleRemove},
	model.EventPick:            {allowed: model.RoleCaptain, apply: handlePick},
	model.EventEditCaptainName: {allowed: model.RoleHost, apply: handleEditCaptainName},
	model.EventForcePick:       {allowed: model.RoleHost, apply: handleForcePick},
	model.EventPing:            {allowed: model.RoleHost, apply: handlePing},
}

// dispatch routes a bound connection's message. Malformed and unauthorized
// messages are dropped without a reply. An inconsistent turn tears the session down.
func (c *Coordinator) dispatch(sess *session.Session, role model.Role, msg model.ClientMessage, log *slog.Logger) error {
	act, ok := actions[msg.Event]
	if !ok {
		log.Debug("ignoring unknown event", slog.String("event", msg.Event))
		return nil
	}
	if act.allowed != role.Kind {
		c.metrics.Actions.WithLabelValues(msg.Event, "ignored").Inc()
		log.Debug("ignoring unauthorized action", slog.String("event", msg.Event))
		return nil
	}

	var applyErr error
	err := sess.Exec(func(tx *session.Tx) error {
		applyErr = act.apply(tx, role, msg)
		if errors.Is(applyErr, model.ErrInconsistentTurn) {
			c.metrics.InternalErrors.Inc()
			log.Error("internal consistency failure, tearing down session",
				slog.Bool("internal", true),
				slog.String("event", msg.Event),
				slog.Any("error", applyErr))
			tx.Teardown(model.ReasonInternalError)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if applyErr != nil {
		c.metrics.Actions.WithLabelValues(msg.Event, "ignored").Inc()
		log.Debug("ignoring rejected action",
			slog.String("event", msg.Event),
			slog.Any("error", applyErr))
		return nil
	}
	c.metrics.Actions.WithLabelValues(msg.Event, "applied").Inc()
	return nil
}

func stringPayload(msg model.ClientMessage) (string, error) {
	s, ok := msg.StringData()
	if !ok {
		return "", fmt.Errorf("%s: %w", msg.Event, errMalformed)
	}
	return s, nil
}

func handleAdd(tx *session.Tx, _ model.Role, msg model.ClientMessage) error {
	player, err := stringPayload(msg)
	if err != nil {
		return err
	}
	tx.Draft().Add(player)
	tx.Broadcast(model.NewMessage(model.EventNewList, tx.Draft().Entries()))
	return nil
}

func handleRemove(tx *session.Tx, _ model.Role, msg model.ClientMessage) error {
	player, err := stringPayload(msg)
	if err != nil {
		return err
	}
	if err := tx.Draft().Remove(player); err != nil {
		return err
	}
	tx.Broadcast(model.NewMessage(model.EventPicking, tx.Draft().Turn()))
	tx.Broadcast(model.NewMessage(model.EventNewList, tx.Draft().Entries()))
	return nil
}

func handlePick(tx *session.Tx, role model.Role, msg model.ClientMessage) error {
	player, err := stringPayload(msg)
	if err != nil {
		return err
	}
	if err := tx.Draft().Pick(role.CaptainID, player); err != nil {
		return err
	}
	tx.Broadcast(model.NewMessage(model.EventNewList, tx.Draft().Entries()))
	tx.Broadcast(model.NewMessage(model.EventPicking, tx.Draft().Turn()))
	return nil
}

func handleEditCaptainName(tx *session.Tx, _ model.Role, msg model.ClientMessage) error {
	var payload struct {
		ID   *string `json:"id"`
		Name *string `json:"name"`
	}
	raw := strings.TrimSpace(string(msg.Data))
	if !strings.HasPrefix(raw, "{") || json.Unmarshal(msg.Data, &payload) != nil {
		return fmt.Errorf("%s: %w", msg.Event, errMalformed)
	}
	if payload.ID == nil || payload.Name == nil || !model.ValidCaptainName(*payload.Name) {
		return fmt.Errorf("%s: %w", msg.Event, errMalformed)
	}
	id := model.CaptainID(*payload.ID)
	if err := tx.Draft().RenameCaptain(id, *payload.Name); err != nil {
		return err
	}
	tx.Broadcast(model.NewMessage(model.EventUpdateCaptainName, model.CaptainName{ID: id, Name: *payload.Name}))
	return nil
}

func handleForcePick(tx *session.Tx, _ model.Role, msg model.ClientMessage) error {
	id, err := stringPayload(msg)
	if err != nil {
		return err
	}
	if err := tx.Draft().ForcePick(model.CaptainID(id)); err != nil {
		return err
	}
	tx.Broadcast(model.NewMessage(model.EventPicking, tx.Draft().Turn()))
	return nil
}

func handlePing(tx *session.Tx, _ model.Role, msg model.ClientMessage) error {
	id, err := stringPayload(msg)
	if err != nil {
		return err
	}
	captain := model.CaptainID(id)
	if _, ok := tx.Draft().Captain(captain); !ok {
		return model.ErrCaptainNotFound
	}
	tx.SendToCaptain(captain, model.NewMessage(model.EventPing, captain))
	return nil
}
