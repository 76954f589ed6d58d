package inmemcache

import (
	"context"
	"sync"
	"time"

	"github.com/alumnihub/backend/core/alumni"
)

type (
	otpEntry struct {
		rec      alumni.OTPRecord
		deadline time.Time
	}

	otpStore struct {
		mutex   sync.Mutex
		entries map[string]*otpEntry
	}
)

var _ alumni.OTPStore = (*otpStore)(nil)

// NewOTPStore returns an OTP store that keeps records in memory. Records are forgotten after their retention.
func NewOTPStore() *otpStore {
	return &otpStore{entries: make(map[string]*otpEntry)}
}

func key(purpose, email string) string {
	return purpose + ":" + email
}

// get returns the live entry for k. The caller must hold the lock.
func (s *otpStore) get(k string) (*otpEntry, bool) {
	entry, ok := s.entries[k]
	if !ok {
		return nil, false
	}
	if alumni.NowFunc().After(entry.deadline) {
		delete(s.entries, k)
		return nil, false
	}
	return entry, true
}

func (s *otpStore) SaveOTP(_ context.Context, rec alumni.OTPRecord, retention time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries[key(rec.Purpose, rec.Email)] = &otpEntry{rec: rec, deadline: alumni.NowFunc().Add(retention)}
	return nil
}

func (s *otpStore) GetOTP(_ context.Context, purpose, email string) (alumni.OTPRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if entry, ok := s.get(key(purpose, email)); ok {
		return entry.rec, nil
	}
	return alumni.OTPRecord{}, alumni.ErrOTPNotFound
}

func (s *otpStore) IncrementOTPAttempts(_ context.Context, purpose, email string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	entry, ok := s.get(key(purpose, email))
	if !ok {
		return 0, alumni.ErrOTPNotFound
	}
	entry.rec.Attempts++
	return entry.rec.Attempts, nil
}

func (s *otpStore) DeleteOTP(_ context.Context, purpose, email string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	k := key(purpose, email)
	_, ok := s.get(k)
	delete(s.entries, k)
	return ok, nil
}

// Reset forgets every record.
func (s *otpStore) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries = make(map[string]*otpEntry)
}
