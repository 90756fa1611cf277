package model

import (
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseReservationStatus(t *testing.T) {
    tests := []struct {
        in      string
        want    ReservationStatus
        wantErr bool
    }{
        {in: "PENDING", want: StatusPending},
        {in: "APPROVED", want: StatusApproved},
        {in: "OVERDUE", want: StatusOverdue},
        {in: "approved", wantErr: true},
        {in: "Overdue", wantErr: true},
        {in: " REJECTED", wantErr: true},
        {in: "DONE", wantErr: true},
        {in: "", wantErr: true},
    }
    for _, tt := range tests {
        t.Run(tt.in, func(t *testing.T) {
            got, err := ParseReservationStatus(tt.in)
            if tt.wantErr {
                require.Error(t, err)
                assert.True(t, errors.Is(err, ErrUnknownStatus))
                return
            }
            require.NoError(t, err)
            assert.Equal(t, tt.want, got)
        })
    }
}

func TestStatusClassification(t *testing.T) {
    for _, s := range AllStatuses {
        assert.NotEqual(t, s.IsTerminal(), s.IsActive(), "status %s", s)
    }
}
