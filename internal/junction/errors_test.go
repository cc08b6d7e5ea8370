package junction

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFault_Error(t *testing.T) {
	tests := []struct {
		name  string
		fault *Fault
		want  string
	}{
		{
			name:  "code only",
			fault: &Fault{Code: ErrCodeClosed, Message: "junction is closed"},
			want:  "CLOSED: junction is closed",
		},
		{
			name:  "with junction",
			fault: &Fault{Code: ErrCodeJunctionUnreachable, Message: "stopped", Junction: "j-1"},
			want:  "JUNCTION_UNREACHABLE: stopped (junction=j-1)",
		},
		{
			name:  "with junction and channel",
			fault: &Fault{Code: ErrCodeNoReply, Message: "no reply", Junction: "j-1", Channel: 3},
			want:  "NO_REPLY: no reply (junction=j-1, channel=3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fault.Error())
		})
	}
}

func TestFault_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("recv: %w", closedFault("j-1", 4))

	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, IsClosed(err))
	assert.Equal(t, ErrCodeClosed, FaultCodeOf(err))
	assert.False(t, errors.Is(err, &Fault{Code: ErrCodeNoReply}))
}

func TestIsConstructionFault(t *testing.T) {
	assert.True(t, IsConstructionFault(mismatchFault("a", "b", 1)))
	assert.True(t, IsConstructionFault(&Fault{Code: ErrCodeNotMember}))
	assert.False(t, IsConstructionFault(ErrClosed))
	assert.False(t, IsConstructionFault(errors.New("plain")))
	assert.Equal(t, FaultCode(""), FaultCodeOf(errors.New("plain")))
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "send", CapabilitySend.String())
	assert.Equal(t, "recv", CapabilityRecv.String())
	assert.Equal(t, "bidir", CapabilityBidir.String())
	assert.Equal(t, "unknown", Capability(0).String())
}
