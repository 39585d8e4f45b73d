package poller

import (
	"time"
)

// Session represents the current trading session
type Session string

const (
	SessionPreMarket  Session = "premarket"
	SessionRegular    Session = "market"
	SessionAfterHours Session = "afterhours"
	SessionClosed     Session = "closed"
)

// CurrentSession determines the trading session for the given time.
// Uses Eastern Time (ET) which is UTC-5 (EST) or UTC-4 (EDT)
// Session hours:
// - Pre-Market: 4:00 AM - 9:30 AM ET
// - Regular: 9:30 AM - 4:00 PM ET
// - After-Hours: 4:00 PM - 8:00 PM ET
func CurrentSession(t time.Time) Session {
	etLocation, err := time.LoadLocation("America/New_York")
	if err != nil {
		// tzdata not available, approximate with EST
		return sessionFallback(t)
	}

	etTime := t.In(etLocation)

	weekday := etTime.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return SessionClosed
	}

	timeOfDay := etTime.Hour()*60 + etTime.Minute()

	// Pre-Market: 4:00 AM - 9:30 AM ET (240 - 570 minutes)
	if timeOfDay >= 240 && timeOfDay < 570 {
		return SessionPreMarket
	}

	// Regular: 9:30 AM - 4:00 PM ET (570 - 960 minutes)
	if timeOfDay >= 570 && timeOfDay < 960 {
		return SessionRegular
	}

	// After-Hours: 4:00 PM - 8:00 PM ET (960 - 1200 minutes)
	if timeOfDay >= 960 && timeOfDay < 1200 {
		return SessionAfterHours
	}

	return SessionClosed
}

// sessionFallback assumes EST (UTC-5) and does not handle DST
func sessionFallback(t time.Time) Session {
	utcTime := t.UTC()
	weekday := utcTime.Weekday()

	if weekday == time.Saturday || weekday == time.Sunday {
		return SessionClosed
	}

	timeOfDay := utcTime.Hour()*60 + utcTime.Minute()

	// Pre-Market: 4:00-9:30 ET = 9:00-14:30 UTC
	if timeOfDay >= 540 && timeOfDay < 870 {
		return SessionPreMarket
	}

	// Regular: 9:30-16:00 ET = 14:30-21:00 UTC
	if timeOfDay >= 870 && timeOfDay < 1260 {
		return SessionRegular
	}

	// After-Hours: 16:00-20:00 ET = 21:00-01:00 UTC (next day)
	if timeOfDay >= 1260 || timeOfDay < 60 {
		return SessionAfterHours
	}

	return SessionClosed
}

// IsMarketOpen returns true during the regular session
func IsMarketOpen(t time.Time) bool {
	return CurrentSession(t) == SessionRegular
}

// IsExtendedHours returns true during pre-market or after-hours
func IsExtendedHours(t time.Time) bool {
	s := CurrentSession(t)
	return s == SessionPreMarket || s == SessionAfterHours
}
