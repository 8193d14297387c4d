package casual

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Hash field names for the casual vector record.
const (
	fieldUserID         = "user_id"
	fieldOriginalText   = "original_text"
	fieldOptimizedText  = "optimized_text"
	fieldLastActivityAt = "last_activity_at"
	fieldVector         = "__vector"
)

// buildVectorFields converts a casual request into a flat map for HSET.
func buildVectorFields(req domain.CasualRequest, dense []float32) map[string]string {
	return map[string]string{
		fieldUserID:         req.UserID,
		fieldOriginalText:   req.OriginalText,
		fieldOptimizedText:  req.OptimizedText,
		fieldLastActivityAt: strconv.FormatInt(req.LastActivityAt.Unix(), 10),
		fieldVector:         vectorToBytes(dense),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
