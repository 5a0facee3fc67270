package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseCron(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"monthly", "0 3 1 * *", false},
		{"daily", "30 2 * * *", false},
		{"every_minute", "* * * * *", false},
		{"weekly", "0 0 * * 0", false},
		{"too_few_fields", "0 3 1 *", true},
		{"too_many_fields", "0 3 1 * * *", true},
		{"non_numeric", "x 3 1 * *", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCron(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "first_of_month",
			expr: "0 3 1 * *",
			want: time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "later_today",
			expr: "0 18 * * *",
			want: time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "tomorrow_morning",
			expr: "0 2 * * *",
			want: time.Date(2026, 3, 16, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "next_minute",
			expr: "* * * * *",
			want: time.Date(2026, 3, 15, 12, 31, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextCronTime(tt.expr, after)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNextCronTimeInvalidExpr(t *testing.T) {
	_, err := nextCronTime("bad cron", time.Now())
	require.Error(t, err)
}
