// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys shared by the probe pipeline.
const (
	CycleIDKey       = "camwatch.cycle_id"
	LocationIDKey    = "camwatch.location_id"
	ChannelsKey      = "camwatch.channels"
	ChannelKey       = "camwatch.channel"
	URLKey           = "camwatch.url"
	QualityKey       = "camwatch.quality"
	AttemptsKey      = "camwatch.attempts"
	FailureClassKey  = "camwatch.failure_class"
	OnlineKey        = "camwatch.online"
	TotalKey         = "camwatch.total"
	LocationErrorKey = "camwatch.location_errors"
)

// ProbeAttributes describes the channel being probed. url must already be masked.
func ProbeAttributes(channel int, url string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ChannelKey, channel),
		attribute.String(URLKey, url),
	}
}

// ResultAttributes describes a probe outcome.
func ResultAttributes(quality, failure string, attempts int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(QualityKey, quality),
		attribute.Int(AttemptsKey, attempts),
	}
	if failure != "" {
		attrs = append(attrs, attribute.String(FailureClassKey, failure))
	}
	return attrs
}

// LocationAttributes describes a location task.
func LocationAttributes(id string, channels int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LocationIDKey, id),
		attribute.Int(ChannelsKey, channels),
	}
}

// CycleAttributes describes a finished cycle.
func CycleAttributes(online, total, locationErrors int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(OnlineKey, online),
		attribute.Int(TotalKey, total),
		attribute.Int(LocationErrorKey, locationErrors),
	}
}
