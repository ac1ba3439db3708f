// Package cursor implements the opaque pagination cursor used by review
// listings. A cursor pins a position in the (created_at DESC, id DESC) sort
// order as "unixMillis:reviewID", base64-encoded so clients treat it as an
// opaque token.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/motorplace/ugc-service/pkg/errors"
)

// Cursor is a decoded pagination position.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode returns the opaque token for the given position. The timestamp is
// truncated to millisecond precision, matching the precision used for
// comparison in the keyset query.
func Encode(createdAt time.Time, id uuid.UUID) string {
	raw := fmt.Sprintf("%d:%s", createdAt.UnixMilli(), id)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque token back into a position. Any failure (bad
// base64, missing separator, non-numeric timestamp, bad UUID) yields a
// MALFORMED_CURSOR error; the caller should not distinguish between them.
func Decode(token string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, apperrors.MalformedCursor(fmt.Errorf("decode base64: %w", err))
	}

	millisStr, idStr, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Cursor{}, apperrors.MalformedCursor(fmt.Errorf("missing separator"))
	}

	millis, err := strconv.ParseInt(millisStr, 10, 64)
	if err != nil {
		return Cursor{}, apperrors.MalformedCursor(fmt.Errorf("parse timestamp: %w", err))
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return Cursor{}, apperrors.MalformedCursor(fmt.Errorf("parse id: %w", err))
	}

	return Cursor{CreatedAt: time.UnixMilli(millis).UTC(), ID: id}, nil
}
