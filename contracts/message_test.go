package contracts

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextMessage(t *testing.T) {
	t.Run("NewTextMessage creates persistent message", func(t *testing.T) {
		msg := NewTextMessage("hello")

		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, DeliveryModePersistent, msg.DeliveryMode)
		assert.Zero(t, msg.Priority)
		assert.Zero(t, msg.Expiration)
		assert.NotNil(t, msg.Properties)
	})

	t.Run("SetProperty works on zero value message", func(t *testing.T) {
		var msg TextMessage
		msg.SetProperty("customer", "ACME")

		v, ok := msg.Property("customer")
		assert.True(t, ok)
		assert.Equal(t, "ACME", v)
		assert.True(t, msg.HasProperty("customer"))

		msg.RemoveProperty("customer")
		assert.False(t, msg.HasProperty("customer"))
	})

	t.Run("StringProperty coerces values", func(t *testing.T) {
		msg := NewTextMessage("")
		msg.SetProperty("count", 42)
		msg.SetProperty("flag", true)

		s, ok := msg.StringProperty("count")
		assert.True(t, ok)
		assert.Equal(t, "42", s)

		s, ok = msg.StringProperty("flag")
		assert.True(t, ok)
		assert.Equal(t, "true", s)

		_, ok = msg.StringProperty("missing")
		assert.False(t, ok)
	})

	t.Run("IntProperty parses numeric strings", func(t *testing.T) {
		msg := NewTextMessage("")
		msg.SetProperty(PropGroupSeq, "7")
		msg.SetProperty(PropFeedback, int32(3))
		msg.SetProperty("name", "abc")

		n, ok := msg.IntProperty(PropGroupSeq)
		assert.True(t, ok)
		assert.Equal(t, int64(7), n)

		n, ok = msg.IntProperty(PropFeedback)
		assert.True(t, ok)
		assert.Equal(t, int64(3), n)

		_, ok = msg.IntProperty("name")
		assert.False(t, ok)
	})

	t.Run("IntProperty accepts every integer width", func(t *testing.T) {
		msg := NewTextMessage("")
		for name, v := range map[string]any{
			"i8": int8(-8), "i16": int16(-16), "u": uint(5), "u64": uint64(64),
		} {
			msg.SetProperty(name, v)
		}
		msg.SetProperty("huge", uint64(math.MaxUint64))

		for name, want := range map[string]int64{"i8": -8, "i16": -16, "u": 5, "u64": 64} {
			n, ok := msg.IntProperty(name)
			assert.True(t, ok, name)
			assert.Equal(t, want, n, name)
		}
		_, ok := msg.IntProperty("huge")
		assert.False(t, ok)
	})

	t.Run("UserPropertyNames excludes reserved and nil", func(t *testing.T) {
		msg := NewTextMessage("")
		msg.SetProperty("zeta", "1")
		msg.SetProperty("alpha", 2)
		msg.SetProperty("unset", nil)
		msg.SetProperty(PropGroupID, "g1")
		msg.SetProperty(PropReportCOA, 256)

		assert.Equal(t, []string{"alpha", "zeta"}, msg.UserPropertyNames())
	})

	t.Run("DeliveryMode String", func(t *testing.T) {
		assert.Equal(t, "PERSISTENT", DeliveryModePersistent.String())
		assert.Equal(t, "NON_PERSISTENT", DeliveryModeNonPersistent.String())
		assert.Equal(t, "DeliveryMode(9)", DeliveryMode(9).String())
	})
}

func TestReservedProperties(t *testing.T) {
	for _, name := range ReportProperties {
		assert.True(t, IsReservedProperty(name), name)
	}
	assert.Len(t, ReportProperties, 9)
	assert.True(t, IsReservedProperty(PropGroupSeq))
	assert.True(t, IsReservedProperty(PropPutTime))
	assert.False(t, IsReservedProperty("orderId"))
}

func TestErrors(t *testing.T) {
	t.Run("MessagingError keeps native codes", func(t *testing.T) {
		cause := errors.New("put failed")
		err := &MessagingError{Op: "send", Destination: "Q1", CompletionCode: 2, ReasonCode: 2085, Err: cause}

		assert.True(t, err.HasNativeCodes())
		assert.Contains(t, err.Error(), "reason=2085")
		assert.Contains(t, err.Error(), "Q1")
		assert.ErrorIs(t, err, cause)

		reason, ok := ReasonCode(fmt.Errorf("wrapped: %w", err))
		assert.True(t, ok)
		assert.Equal(t, int32(2085), reason)
	})

	t.Run("MessagingError without codes", func(t *testing.T) {
		err := &MessagingError{Op: "map", Err: ErrUnknownPersistence}
		assert.False(t, err.HasNativeCodes())
		assert.NotContains(t, err.Error(), "reason=")
		assert.ErrorIs(t, err, ErrUnknownPersistence)

		_, ok := ReasonCode(err)
		assert.False(t, ok)
	})

	t.Run("NoMessageAvailableError matches sentinel", func(t *testing.T) {
		err := &NoMessageAvailableError{Destination: "Q1", WaitInterval: 1500 * time.Millisecond}

		assert.True(t, IsNoMessageAvailable(err))
		assert.True(t, errors.Is(fmt.Errorf("x: %w", err), ErrNoMessageAvailable))
		assert.Contains(t, err.Error(), "1500")
	})

	t.Run("ConfigurationError matches sentinel", func(t *testing.T) {
		err := &ConfigurationError{Field: "SSLKeyRepository", Reason: "required with SSLCipherSpec"}

		require.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.Contains(t, err.Error(), "SSLKeyRepository")
		assert.False(t, IsNoMessageAvailable(err))
	})
}
