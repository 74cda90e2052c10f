package engine

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	ViewChanged     <-chan ViewChange
	TrackChanged    <-chan TrackChange
	ModeChanged     <-chan ModeChange
	FavoriteChanged <-chan FavoriteChange
	ScanDone        <-chan ScanDone
	Done            <-chan struct{}

	// Internal write channels
	viewCh     chan ViewChange
	trackCh    chan TrackChange
	modeCh     chan ModeChange
	favoriteCh chan FavoriteChange
	scanCh     chan ScanDone
	doneCh     chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		viewCh:     make(chan ViewChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		favoriteCh: make(chan FavoriteChange, eventBufferSize),
		scanCh:     make(chan ScanDone, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.ViewChanged = s.viewCh
	s.TrackChanged = s.trackCh
	s.ModeChanged = s.modeCh
	s.FavoriteChanged = s.favoriteCh
	s.ScanDone = s.scanCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendView sends a view change event (non-blocking).
func (s *Subscription) sendView(e ViewChange) {
	select {
	case s.viewCh <- e:
	default:
		// Drop if buffer full
	}
}

// sendTrack sends a track change event (non-blocking).
func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

// sendMode sends a mode change event (non-blocking).
func (s *Subscription) sendMode(e ModeChange) {
	select {
	case s.modeCh <- e:
	default:
	}
}

// sendFavorite sends a favorite change event (non-blocking).
func (s *Subscription) sendFavorite(e FavoriteChange) {
	select {
	case s.favoriteCh <- e:
	default:
	}
}

// sendScanDone sends a scan completion event (non-blocking).
func (s *Subscription) sendScanDone(e ScanDone) {
	select {
	case s.scanCh <- e:
	default:
	}
}
