package service

import (
	"testing"

	"campwise-data/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		action string
		from   string
		ok     bool
	}{
		{"allocate", domain.TransferStatusPendingAllocation, true},
		{"allocate", domain.TransferStatusBedsAllocated, false},
		{"approve", domain.TransferStatusBedsAllocated, true},
		{"approve", domain.TransferStatusPendingAllocation, false},
		{"dispatch", domain.TransferStatusApprovedForDispatch, true},
		{"dispatch", domain.TransferStatusBedsAllocated, false},
		{"confirm_arrival", domain.TransferStatusTechsDispatched, true},
		{"confirm_arrival", domain.TransferStatusPartiallyArrived, true},
		{"confirm_arrival", domain.TransferStatusApprovedForDispatch, false},
		{"confirm_arrival", domain.TransferStatusCompleted, false},
		{"cancel", domain.TransferStatusPendingAllocation, true},
		{"cancel", domain.TransferStatusTechsDispatched, true},
		{"cancel", domain.TransferStatusPartiallyArrived, true},
		{"cancel", domain.TransferStatusCompleted, false},
		{"cancel", domain.TransferStatusCancelled, false},
		{"unknown_action", domain.TransferStatusPendingAllocation, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, ValidTransition(tt.action, tt.from),
			"%s from %s", tt.action, tt.from)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := invalidTransitionError("req-1", "approve", domain.TransferStatusCompleted)
	assert.Equal(t, KindConflict, err.Kind)
	assert.Equal(t, CodeInvalidStateTransition, err.Code)
	assert.Contains(t, err.Error(), "approve")
	assert.Contains(t, err.Error(), domain.TransferStatusCompleted)
}
