package mapper

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/mq"
)

const (
	// IDPrefix marks an identifier rendered as hex bytes.
	IDPrefix = "ID:"

	// MaxExpirySeconds is the longest lifetime the descriptor can carry.
	MaxExpirySeconds = 214748364.7

	queuePrefix     = "queue://"
	timestampLayout = "20060102150405"
)

// NormalizeDestination strips the queue:// locator from a destination.
// "queue:///Q" and "queue://MGR/Q" both yield "Q", bare names are
// returned unchanged.
func NormalizeDestination(destination string) string {
	if !strings.HasPrefix(destination, queuePrefix) {
		return destination
	}
	rest := destination[len(queuePrefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i+1:]
	}
	return ""
}

// QueueLocator returns the destination form written to the jms folder.
func QueueLocator(queue string) string {
	return queuePrefix + "/" + queue
}

// ParseReplyTo splits a reply-to locator into queue manager and queue.
func ParseReplyTo(locator string) (manager, queue string) {
	if !strings.HasPrefix(locator, queuePrefix) {
		return "", locator
	}
	rest := locator[len(queuePrefix):]
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return "", rest
	}
	return rest[:i], rest[i+1:]
}

// FormatReplyTo builds a reply-to locator.
func FormatReplyTo(manager, queue string) string {
	return queuePrefix + manager + "/" + queue
}

// FormatID renders identifier bytes as "ID:" followed by uppercase hex.
func FormatID(id []byte) string {
	return IDPrefix + strings.ToUpper(hex.EncodeToString(id))
}

// ParseID decodes an identifier rendered by FormatID. Either hex case is
// accepted.
func ParseID(id string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(id, IDPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", contracts.ErrInvalidIdentifier, id, err)
	}
	return raw, nil
}

// IdentifierBytes converts a message-level identifier to its descriptor
// slot.
func IdentifierBytes(id string) ([]byte, error) {
	if strings.HasPrefix(id, IDPrefix) {
		raw, err := ParseID(id)
		if err != nil {
			return nil, err
		}
		return mq.FixedID(raw), nil
	}
	slot := bytes.Repeat([]byte{' '}, mq.IDLength)
	copy(slot, id)
	return slot, nil
}

// ExpiryFromMillis converts a relative expiration in milliseconds to
// descriptor centiseconds. Non-positive input and lifetimes beyond
// MaxExpirySeconds or the int32 range map to mq.ExpiryUnlimited.
func ExpiryFromMillis(ms int64) int32 {
	if ms <= 0 || float64(ms)/1000 > MaxExpirySeconds {
		return mq.ExpiryUnlimited
	}
	cs := ms / 10
	if cs > math.MaxInt32 {
		return mq.ExpiryUnlimited
	}
	if cs < 1 {
		cs = 1
	}
	return int32(cs)
}

// Timestamp converts a put date (YYYYMMDD) and put time (HHMMSShh) to epoch
// milliseconds. Both are read as UTC.
func Timestamp(putDate, putTime string) (int64, error) {
	date := mq.Trim(putDate)
	clock := mq.Trim(putTime)
	if len(date) != 8 || len(clock) < 6 {
		return 0, fmt.Errorf("%w: put date %q time %q", ErrInvalidField, putDate, putTime)
	}

	t, err := time.ParseInLocation(timestampLayout, date+clock[:6], time.UTC)
	if err != nil {
		return 0, fmt.Errorf("%w: put date %q time %q: %v", ErrInvalidField, putDate, putTime, err)
	}

	var centi int64
	if frac := clock[6:]; frac != "" {
		centi, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: put time %q: %v", ErrInvalidField, putTime, err)
		}
	}
	return t.UnixMilli() + centi*10, nil
}

// PutDateTime renders t in descriptor put date and time form.
func PutDateTime(t time.Time) (date, clock string) {
	t = t.UTC()
	return t.Format("20060102"), t.Format("150405") + fmt.Sprintf("%02d", t.Nanosecond()/int(10*time.Millisecond))
}

// groupIDString renders a group identifier as text when every byte is
// printable and as "ID:" hex otherwise.
func groupIDString(id []byte) string {
	trimmed := bytes.TrimRight(id, " \x00")
	for _, b := range trimmed {
		if b > unicode.MaxASCII || !unicode.IsPrint(rune(b)) {
			return FormatID(id)
		}
	}
	return string(trimmed)
}
