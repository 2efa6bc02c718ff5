package notify

import (
	"sync"
	"time"

	"senha-engine/internal/geo"
)

// locationTTL bounds how long a reported position counts as "last known".
const locationTTL = 30 * time.Minute

// Locations keeps each user's last reported position. The proximity sweep
// writes it; the proactive sweep reads it for travel-time alerts.
type Locations struct {
	mu     sync.RWMutex
	points map[int64]timedPoint
	Now    func() time.Time
}

type timedPoint struct {
	point geo.Point
	at    time.Time
}

func NewLocations() *Locations {
	return &Locations{
		points: make(map[int64]timedPoint),
		Now:    time.Now,
	}
}

func (l *Locations) Update(userID int64, point geo.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points[userID] = timedPoint{point: point, at: l.Now()}
}

func (l *Locations) Get(userID int64) (geo.Point, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tp, ok := l.points[userID]
	if !ok || l.Now().Sub(tp.at) > locationTTL {
		return geo.Point{}, false
	}
	return tp.point, true
}
