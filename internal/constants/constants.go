package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second

	ShutdownTimeout = 10 * time.Second

	// DefaultSnapshotLimit bounds the bulk fetch so a national filter cannot
	// blow up memory or render cost downstream.
	DefaultSnapshotLimit = 500

	// MessageTypeRealtime is the category fetched for the live map feed.
	// MessageTypePlanned exists upstream for roadwork calendars.
	MessageTypeRealtime = "realtime"
	MessageTypePlanned  = "planned"

	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)
