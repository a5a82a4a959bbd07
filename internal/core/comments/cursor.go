package comments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// maxCursorSize bounds cursor input before any decoding work
	maxCursorSize = 512

	fieldDelimiter     = "|"
	signatureDelimiter = "::"
)

// Cursor is the decoded position of a keyset page: the (created_at, id) of
// the last row served and the parent it was issued for (nil = top level).
type Cursor struct {
	ParentID       *string
	AfterTimestamp time.Time
	AfterID        string
}

// CursorScope names the listing a cursor is redeemed against
type CursorScope struct {
	ParentID *string
}

// TopLevelScope is the scope of top-level listings
func TopLevelScope() CursorScope {
	return CursorScope{}
}

// RepliesScope is the scope of one parent's reply listing
func RepliesScope(parentID string) CursorScope {
	return CursorScope{ParentID: &parentID}
}

func (s CursorScope) matches(parentID *string) bool {
	if s.ParentID == nil || parentID == nil {
		return s.ParentID == nil && parentID == nil
	}
	return *s.ParentID == *parentID
}

func (s CursorScope) String() string {
	if s.ParentID == nil {
		return "top-level"
	}
	return "replies of " + *s.ParentID
}

// CursorCodec turns cursors into opaque URL-safe strings and back.
// With a non-empty secret the payload is HMAC-signed and tampered cursors
// are rejected as malformed.
type CursorCodec struct {
	secret []byte
}

// NewCursorCodec creates a codec; an empty secret disables signing
func NewCursorCodec(secret string) *CursorCodec {
	return &CursorCodec{secret: []byte(secret)}
}

// Encode serializes a cursor. The output is stable for a given cursor and secret.
func (c *CursorCodec) Encode(cur Cursor) string {
	parent := ""
	if cur.ParentID != nil {
		parent = *cur.ParentID
	}
	payload := strings.Join([]string{
		parent,
		cur.AfterTimestamp.UTC().Format(time.RFC3339Nano),
		cur.AfterID,
	}, fieldDelimiter)

	if len(c.secret) > 0 {
		payload = payload + signatureDelimiter + c.sign(payload)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Decode parses a cursor and checks that it was issued for scope.
// Errors wrap ErrMalformedCursor or ErrCursorScopeMismatch.
func (c *CursorCodec) Decode(raw string, scope CursorScope) (*Cursor, error) {
	cur, err := c.parse(raw)
	if err != nil {
		return nil, err
	}
	if !scope.matches(cur.ParentID) {
		return nil, fmt.Errorf("%w: cursor is not for %s", ErrCursorScopeMismatch, scope)
	}
	return cur, nil
}

func (c *CursorCodec) parse(raw string) (*Cursor, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedCursor)
	}
	if len(raw) > maxCursorSize {
		return nil, fmt.Errorf("%w: exceeds maximum length", ErrMalformedCursor)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding", ErrMalformedCursor)
	}
	payload := string(decoded)

	if len(c.secret) > 0 {
		idx := strings.LastIndex(payload, signatureDelimiter)
		if idx < 0 {
			return nil, fmt.Errorf("%w: missing signature", ErrMalformedCursor)
		}
		signature := payload[idx+len(signatureDelimiter):]
		payload = payload[:idx]
		if !hmac.Equal([]byte(signature), []byte(c.sign(payload))) {
			return nil, fmt.Errorf("%w: invalid signature", ErrMalformedCursor)
		}
	}

	parts := strings.Split(payload, fieldDelimiter)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedCursor, len(parts))
	}

	cur := &Cursor{}
	if parts[0] != "" {
		if _, err := uuid.Parse(parts[0]); err != nil {
			return nil, fmt.Errorf("%w: invalid parent id", ErrMalformedCursor)
		}
		parent := parts[0]
		cur.ParentID = &parent
	}

	ts, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp", ErrMalformedCursor)
	}
	cur.AfterTimestamp = ts

	if _, err := uuid.Parse(parts[2]); err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrMalformedCursor)
	}
	cur.AfterID = parts[2]

	return cur, nil
}

func (c *CursorCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
