package redisx

import "time"

const (
	// availability:ver:{court_id} -> generation counter bumped on every change
	KeyAvailabilityVersion = "availability:ver:%s"

	// availability:{court_id}:{generation}:{from}:{to} -> JSON []interval
	KeyAvailability = "availability:%s:%d:%d:%d"

	// lease:{name} -> owner token
	KeyLease = "lease:%s"
)

var TTLAvailability = 30 * time.Second
