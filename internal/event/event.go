package event

import "time"

// CountyNational is the county identifier for nationwide events. They are
// admitted regardless of which counties the user monitors.
const CountyNational = 0

// Event is a single road-traffic situation as published by the upstream
// traffic API. An event carries two identities: ID is assigned by the backing
// store and ExternalID by the real-time source. Depending on origin either
// one may be absent, so identity comparisons go through SameIdentity rather
// than comparing a single field.
type Event struct {
	ID          int64      `json:"id,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	MessageType string     `json:"message_type,omitempty"`
	IconID      string     `json:"icon_id,omitempty"`
	CameraURL   string     `json:"camera_url,omitempty"`
	Severity    string     `json:"severity,omitempty"`
	RoadNumber  string     `json:"road_number,omitempty"`
	Restriction string     `json:"restriction,omitempty"`
	CountyID    int        `json:"county_id"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Forwarded   bool       `json:"forwarded,omitempty"`
}

// HasIdentity reports whether the event carries at least one identifier and
// can therefore participate in de-duplication.
func (e Event) HasIdentity() bool {
	return e.ID != 0 || e.ExternalID != ""
}

// SameIdentity reports whether e and other refer to the same situation. The
// primary ID wins when both sides carry one; otherwise the external ID is
// compared. Events that share no populated identifier field never match.
func (e Event) SameIdentity(other Event) bool {
	if e.ID != 0 && other.ID != 0 {
		return e.ID == other.ID
	}
	if e.ExternalID != "" && other.ExternalID != "" {
		return e.ExternalID == other.ExternalID
	}
	return false
}

// HasPosition reports whether the event can be placed on a map. Events
// without coordinates stay in the collection but are never rendered.
func (e Event) HasPosition() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// Merge combines a known event with an incoming update for the same
// situation. Incoming fields override known ones; fields the update omits
// keep their known values. The real-time source sends partial notifications,
// so a plain struct replacement would erase data. Merging the same update
// twice yields the same result.
func Merge(known, incoming Event) Event {
	out := known

	if incoming.ID != 0 {
		out.ID = incoming.ID
	}
	if incoming.ExternalID != "" {
		out.ExternalID = incoming.ExternalID
	}
	if incoming.Title != "" {
		out.Title = incoming.Title
	}
	if incoming.Description != "" {
		out.Description = incoming.Description
	}
	if incoming.Location != "" {
		out.Location = incoming.Location
	}
	if incoming.MessageType != "" {
		out.MessageType = incoming.MessageType
	}
	if incoming.IconID != "" {
		out.IconID = incoming.IconID
	}
	if incoming.CameraURL != "" {
		out.CameraURL = incoming.CameraURL
	}
	if incoming.Severity != "" {
		out.Severity = incoming.Severity
	}
	if incoming.RoadNumber != "" {
		out.RoadNumber = incoming.RoadNumber
	}
	if incoming.Restriction != "" {
		out.Restriction = incoming.Restriction
	}
	if incoming.CountyID != 0 {
		out.CountyID = incoming.CountyID
	}
	if incoming.Latitude != nil {
		out.Latitude = incoming.Latitude
	}
	if incoming.Longitude != nil {
		out.Longitude = incoming.Longitude
	}
	if incoming.StartTime != nil {
		out.StartTime = incoming.StartTime
	}
	if incoming.EndTime != nil {
		out.EndTime = incoming.EndTime
	}
	if incoming.Forwarded {
		out.Forwarded = true
	}

	return out
}
