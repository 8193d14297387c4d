package profile

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Hash field names. Double-underscore fields are engine-internal; the rest
// form the record payload.
const (
	fieldUserID      = "user_id"
	fieldProfileText = "profile_text"
	fieldTags        = "tags"
	fieldLastUpdated = "last_updated"
	fieldVector      = "__vector"
	fieldSparse      = "__sparse"
)

// buildHashFields converts a profile record into a flat map[string]string for HSET.
func buildHashFields(
	p domain.Profile, dense []float32, sparse domain.SparseVector,
) (map[string]string, error) {
	lastUpdated := p.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	m := map[string]string{
		fieldUserID:      p.UserID,
		fieldProfileText: p.ProfileText,
		fieldTags:        strings.Join(p.Tags, ","),
		fieldLastUpdated: strconv.FormatInt(lastUpdated.Unix(), 10),
		fieldVector:      vectorToBytes(dense),
	}

	if len(sparse) > 0 {
		data, err := json.Marshal(sparse)
		if err != nil {
			return nil, err
		}
		m[fieldSparse] = string(data)
	}

	return m, nil
}

// parseProfileFields converts a flat hash map back into a profile payload.
func parseProfileFields(userID string, m map[string]string) domain.Profile {
	p := domain.Profile{
		UserID:      userID,
		ProfileText: m[fieldProfileText],
	}
	if tags := m[fieldTags]; tags != "" {
		p.Tags = strings.Split(tags, ",")
	}
	if ts, err := strconv.ParseInt(m[fieldLastUpdated], 10, 64); err == nil {
		p.LastUpdated = time.Unix(ts, 0).UTC()
	}
	return p
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
