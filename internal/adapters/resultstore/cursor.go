package resultstore

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// position is a point in the (date desc, id asc) event order.
type position struct {
	Date time.Time
	ID   string
}

// encodeCursor encodes the position as base64(unix_nano:id).
func encodeCursor(p position) string {
	value := fmt.Sprintf("%d:%s", p.Date.UTC().UnixNano(), p.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

func decodeCursor(cursor string) (position, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cursor))
	if err != nil {
		return position{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return position{}, ErrInvalidCursor
	}
	unixNano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return position{}, ErrInvalidCursor
	}
	return position{Date: time.Unix(0, unixNano).UTC(), ID: parts[1]}, nil
}

// before reports whether a sorts ahead of b: newer first, then by id.
func before(a, b position) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID < b.ID
}
