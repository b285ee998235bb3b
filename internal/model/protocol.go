package model

import (
	"bytes"
	"encoding/json"
)

// Event names for messages sent by clients
const (
	EventSelectMatch     = "selectMatch"
	EventSelectRole      = "selectRole"
	EventAdd             = "add"
	EventRemove          = "remove"
	EventPick            = "pick"
	EventEditCaptainName = "editCaptainName"
	EventForcePick       = "forcePick"
	EventPing            = "ping"
)

// Event names for messages sent by the server
const (
	EventCaptainIDs        = "captainIds"
	EventNewList           = "newList"
	EventRoleID            = "roleId"
	EventPicking           = "picking"
	EventPermission        = "permission"
	EventSpectatorSecret   = "spectatorSecret"
	EventConnection        = "connection"
	EventUpdateCaptainName = "updateCaptainName"
)

// ClientMessage is an inbound frame. Data is decoded by the handler for the event.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// StringData decodes the payload as a string, reporting false for any other type
func (m ClientMessage) StringData() (string, bool) {
	raw := bytes.TrimSpace(m.Data)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ServerMessage is an outbound frame
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NewMessage builds a server message
func NewMessage(event string, data any) ServerMessage {
	return ServerMessage{Event: event, Data: data}
}

// CaptainInfo is one entry of the captainIds payload. Secret is only set for the host.
type CaptainInfo struct {
	Name   string    `json:"name"`
	ID     CaptainID `json:"id"`
	Secret string    `json:"secret,omitempty"`
}

// CaptainName is the payload of editCaptainName and updateCaptainName
type CaptainName struct {
	ID   CaptainID `json:"id"`
	Name string    `json:"name"`
}

// Connectivity summarises which role slots currently hold a connection
type Connectivity struct {
	Host       bool               `json:"host"`
	Captains   map[CaptainID]bool `json:"captains"`
	Spectators int                `json:"spectators"`
}
