// Package scorecache is the Score Cache (component H): two memoization
// tables — per-district-row scores, keyed by (function_id, district_row_id),
// and per-plan scores, keyed by (function_id, plan_id, version) — computed
// on miss and never invalidated except by cascade delete of the district
// rows they reference (spec §4.H). Grounded on the teacher's civic-score
// package for the "named function, typed inputs" shape, and on
// SoySergo-location_microservice's cache/redis.go for the backing-store
// wrapper idiom; the wire format is this module's own, using
// encoding/protowire for a stable, versioned, length-prefixed tagged binary
// encoding (Design Notes) rather than gob or JSON.
package scorecache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"
)

// wireVersion is bumped whenever the tagged binary layout changes
// incompatibly; Decode rejects any other version rather than guessing.
const wireVersion = 1

// ErrDecodeFailed is returned by Decode when the bytes are malformed or at
// an unsupported wire version. Callers (Cache.getOrCompute) treat this as
// a cache miss: recompute and overwrite, per spec §4.H.
var ErrDecodeFailed = errors.New("scorecache: decode failed")

// Encode serializes a decimal score as a length-prefixed tagged binary
// value: field 1 is the wire version (varint), field 2 is the decimal's
// canonical string form (bytes). Using the canonical string form rather
// than shopspring/decimal's internal coefficient/exponent avoids coupling
// the wire format to that library's internal representation.
func Encode(value decimal.Decimal) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, wireVersion)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, value.String())
	return b
}

// Decode parses bytes produced by Encode. Any parse error or version
// mismatch is reported as ErrDecodeFailed, uniformly, since the caller's
// only recourse either way is to recompute and overwrite.
func Decode(data []byte) (decimal.Decimal, error) {
	var version uint64
	var haveVersion bool
	var numStr string
	var haveNum bool

	for len(data) > 0 {
		fieldNum, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return decimal.Decimal{}, ErrDecodeFailed
		}
		data = data[n:]

		switch fieldNum {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return decimal.Decimal{}, ErrDecodeFailed
			}
			version, haveVersion = v, true
			data = data[n:]
		case 2:
			s, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return decimal.Decimal{}, ErrDecodeFailed
			}
			numStr, haveNum = string(s), true
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(fieldNum, wireType, data)
			if n < 0 {
				return decimal.Decimal{}, ErrDecodeFailed
			}
			data = data[n:]
		}
	}

	if !haveVersion || version != wireVersion || !haveNum {
		return decimal.Decimal{}, ErrDecodeFailed
	}
	d, err := decimal.NewFromString(numStr)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return d, nil
}

// Backend is the minimal key-value contract the cache needs from its
// storage layer — small enough for both a Redis client and an in-memory map
// to satisfy directly.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys []string) error
}

// Cache implements the Score Cache's two memoization tables over a Backend.
type Cache struct {
	backend Backend
}

// New wraps a Backend as a Cache.
func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

func rowKey(functionID, districtRowID string) string {
	return "score:row:" + functionID + ":" + districtRowID
}

func planKey(functionID, planID string, version int) string {
	return "score:plan:" + functionID + ":" + planID + ":" + strconv.Itoa(version)
}

// RowScore returns the memoized score for (functionID, districtRowID),
// computing and storing it via compute on a miss or a decode failure — a
// district row never mutates after it is superseded, so once stored the
// entry never needs recomputation again (spec §4.H).
func (c *Cache) RowScore(ctx context.Context, functionID, districtRowID string, compute func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	return c.getOrCompute(ctx, rowKey(functionID, districtRowID), compute)
}

// PlanScore returns the memoized score for (functionID, planID, version),
// the plan-level counterpart of RowScore. version is part of the key, so
// each plan version gets its own eternally-valid cache entry once computed.
func (c *Cache) PlanScore(ctx context.Context, functionID, planID string, version int, compute func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	return c.getOrCompute(ctx, planKey(functionID, planID, version), compute)
}

func (c *Cache) getOrCompute(ctx context.Context, key string, compute func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	raw, found, err := c.backend.Get(ctx, key)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("scorecache: backend get %s: %w", key, err)
	}
	if found {
		if value, decodeErr := Decode(raw); decodeErr == nil {
			return value, nil
		}
		// Decode failure: fall through to recompute-and-overwrite.
	}

	value, err := compute()
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := c.backend.Set(ctx, key, Encode(value)); err != nil {
		return decimal.Decimal{}, fmt.Errorf("scorecache: backend set %s: %w", key, err)
	}
	return value, nil
}

// EvictRows removes every per-row cache entry for the given district row ids
// across every function name — the Score Cache's half of "eviction is keyed
// to row deletion via cascade" (spec §4.H); callers invoke this alongside
// store.Store.DeleteDistrictRows.
func (c *Cache) EvictRows(ctx context.Context, functionNames, districtRowIDs []string) error {
	keys := make([]string, 0, len(functionNames)*len(districtRowIDs))
	for _, fn := range functionNames {
		for _, rowID := range districtRowIDs {
			keys = append(keys, rowKey(fn, rowID))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.backend.Delete(ctx, keys)
}
