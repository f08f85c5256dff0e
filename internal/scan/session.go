package scan

import "sync"

// DecodeSession gates a stream of decode attempts so the first valid payload
// is accepted exactly once per session. Per-frame decode misses and malformed
// frames are normal, not terminal: the session stays open until something
// parses. Manual text entry goes through the same Offer path.
type DecodeSession struct {
	mu       sync.Mutex
	accepted bool
	onDecode func(*Payload)
}

func NewDecodeSession(onDecode func(*Payload)) *DecodeSession {
	return &DecodeSession{onDecode: onDecode}
}

// Offer submits one piece of decoded text. Returns true if the payload was
// accepted as this session's decode; false if the session already accepted
// one. Invalid text returns the validation error and leaves the session open.
func (s *DecodeSession) Offer(raw string) (bool, error) {
	payload, err := ParsePayload(raw)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.accepted {
		s.mu.Unlock()
		return false, nil
	}
	s.accepted = true
	s.mu.Unlock()

	if s.onDecode != nil {
		s.onDecode(payload)
	}
	return true, nil
}

// Done reports whether this session has already accepted a payload.
func (s *DecodeSession) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Reset rearms the session for a new scan.
func (s *DecodeSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepted = false
}
