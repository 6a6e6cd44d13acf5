package kvstore

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Store reads bookings through an Executor. Failed commands are logged and
// reported as "no data"; they never reach the caller as errors.
type Store struct {
	exec         Executor
	listKey      string
	recordPrefix string
	logger       *zerolog.Logger
}

func NewStore(exec Executor, listKey, recordPrefix string, logger *zerolog.Logger) *Store {
	return &Store{
		exec:         exec,
		listKey:      listKey,
		recordPrefix: recordPrefix,
		logger:       logger,
	}
}

// ListBookingIDs returns every identifier in the bookings list, in list
// order. It returns an empty slice when the command fails or the list is
// absent.
func (s *Store) ListBookingIDs(ctx context.Context) []string {
	ids, err := s.exec.Do(ctx, "LRANGE", s.listKey, "0", "-1")
	if err != nil {
		s.logFailure(err, "LRANGE", s.listKey)
		return []string{}
	}
	return ids
}

// GetBooking returns the raw fields of one booking hash, or nil when the
// command failed or the hash is empty or absent.
func (s *Store) GetBooking(ctx context.Context, id string) map[string]string {
	key := s.recordPrefix + id
	flat, err := s.exec.Do(ctx, "HGETALL", key)
	if err != nil {
		s.logFailure(err, "HGETALL", key)
		return nil
	}
	if len(flat) == 0 {
		return nil
	}
	return PairsToMap(flat)
}

// PairsToMap folds [f1, v1, f2, v2, ...] into a field mapping. A trailing
// field without a value maps to "".
func PairsToMap(flat []string) map[string]string {
	fields := make(map[string]string, (len(flat)+1)/2)
	for i := 0; i < len(flat); i += 2 {
		value := ""
		if i+1 < len(flat) {
			value = flat[i+1]
		}
		fields[flat[i]] = value
	}
	return fields
}

func (s *Store) logFailure(err error, cmd, key string) {
	if errors.Is(err, ErrNullResult) {
		return
	}
	s.logger.Error().Err(err).Str("command", cmd).Str("key", key).Msg("Redis command failed")
}
