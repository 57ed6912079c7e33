package mapper

import (
	"math"
	"testing"
	"time"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDestination(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"queue:///TEST.Q", "TEST.Q"},
		{"queue://QM1/TEST.Q", "TEST.Q"},
		{"queue://QM1/A/B", "A/B"},
		{"queue:///A/B", "A/B"},
		{"A/B", "A/B"},
		{"TEST.Q", "TEST.Q"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDestination(tt.in))
		})
	}
}

func TestReplyToLocator(t *testing.T) {
	mgr, q := ParseReplyTo("queue://QM1/REPLY.Q")
	assert.Equal(t, "QM1", mgr)
	assert.Equal(t, "REPLY.Q", q)

	mgr, q = ParseReplyTo("queue:///REPLY.Q")
	assert.Equal(t, "", mgr)
	assert.Equal(t, "REPLY.Q", q)

	mgr, q = ParseReplyTo("REPLY.Q")
	assert.Equal(t, "", mgr)
	assert.Equal(t, "REPLY.Q", q)

	assert.Equal(t, "queue://QM1/REPLY.Q", FormatReplyTo("QM1", "REPLY.Q"))
	assert.Equal(t, "queue:///TEST.Q", QueueLocator("TEST.Q"))
}

func TestIdentifiers(t *testing.T) {
	t.Run("FormatID renders uppercase hex", func(t *testing.T) {
		assert.Equal(t, "ID:AB01FF", FormatID([]byte{0xab, 0x01, 0xff}))
	})

	t.Run("ParseID accepts either case", func(t *testing.T) {
		upper, err := ParseID("ID:AB01FF")
		require.NoError(t, err)
		lower, err := ParseID("ID:ab01ff")
		require.NoError(t, err)
		assert.Equal(t, upper, lower)
		assert.Equal(t, []byte{0xab, 0x01, 0xff}, upper)
	})

	t.Run("ParseID rejects bad hex", func(t *testing.T) {
		_, err := ParseID("ID:XYZ")
		assert.ErrorIs(t, err, contracts.ErrInvalidIdentifier)
	})

	t.Run("round trip through a descriptor slot", func(t *testing.T) {
		raw := []byte("AMQ QM1     \x01\x02\x03\x04\x05\x06\x07\x08\x09\x0a\x0b\x0c")
		require.Len(t, raw, mq.IDLength)

		slot, err := IdentifierBytes(FormatID(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, slot)
		assert.Equal(t, FormatID(raw), FormatID(slot))
	})

	t.Run("text identifiers are space padded", func(t *testing.T) {
		slot, err := IdentifierBytes("abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc                     "), slot)
	})

	t.Run("text identifiers are truncated", func(t *testing.T) {
		slot, err := IdentifierBytes("0123456789abcdefghijklmnopqrstuvwxyz")
		require.NoError(t, err)
		assert.Equal(t, []byte("0123456789abcdefghijklmn"), slot)
	})

	t.Run("group ids render as text when printable", func(t *testing.T) {
		slot, _ := IdentifierBytes("grp-1")
		assert.Equal(t, "grp-1", groupIDString(slot))
		assert.Equal(t, "ID:0001", groupIDString([]byte{0x00, 0x01}))
	})
}

func TestExpiryFromMillis(t *testing.T) {
	assert.Equal(t, int32(500), ExpiryFromMillis(5000))
	assert.Equal(t, int32(1), ExpiryFromMillis(9))
	assert.Equal(t, mq.ExpiryUnlimited, ExpiryFromMillis(0))
	assert.Equal(t, mq.ExpiryUnlimited, ExpiryFromMillis(-10))

	t.Run("largest representable lifetime", func(t *testing.T) {
		assert.Equal(t, int32(math.MaxInt32), ExpiryFromMillis(int64(math.MaxInt32)*10))
	})

	t.Run("clips instead of wrapping", func(t *testing.T) {
		assert.Equal(t, mq.ExpiryUnlimited, ExpiryFromMillis(int64(math.MaxInt32)*10+10))
		assert.Equal(t, mq.ExpiryUnlimited, ExpiryFromMillis(214748364701))
		assert.Equal(t, mq.ExpiryUnlimited, ExpiryFromMillis(math.MaxInt64))
	})
}

func TestTimestamp(t *testing.T) {
	t.Run("combines date, time and centiseconds", func(t *testing.T) {
		ts, err := Timestamp("20240315", "10203045")
		require.NoError(t, err)
		want := time.Date(2024, 3, 15, 10, 20, 30, 450*int(time.Millisecond), time.UTC).UnixMilli()
		assert.Equal(t, want, ts)
	})

	t.Run("tolerates padding and missing centiseconds", func(t *testing.T) {
		ts, err := Timestamp("20240315 ", "102030  ")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 10, 20, 30, 0, time.UTC).UnixMilli(), ts)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := Timestamp("2024", "102030")
		assert.ErrorIs(t, err, ErrInvalidField)
		_, err = Timestamp("20241399", "102030")
		assert.ErrorIs(t, err, ErrInvalidField)
		_, err = Timestamp("20240315", "102030xx")
		assert.ErrorIs(t, err, ErrInvalidField)
	})

	t.Run("PutDateTime is the inverse", func(t *testing.T) {
		at := time.Date(2024, 3, 15, 10, 20, 30, 450*int(time.Millisecond), time.UTC)
		date, clock := PutDateTime(at)
		assert.Equal(t, "20240315", date)
		assert.Equal(t, "10203045", clock)

		ts, err := Timestamp(date, clock)
		require.NoError(t, err)
		assert.Equal(t, at.UnixMilli(), ts)
	})
}
