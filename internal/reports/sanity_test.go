package reports

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
)

func TestSanityCheck_Balanced(t *testing.T) {
	res, err := newReporter(farmBook()).SanityCheck(context.Background(), 2023)
	require.NoError(t, err)

	assertAmount(t, "-33200", res.NetCashFlow)
	assertAmount(t, "50000", res.LastYearCash)
	assert.True(t, res.LastYearARAP.IsZero())
	assert.True(t, res.EndingARAP.IsZero())
	assertAmount(t, "16800", res.Net)
	assertAmount(t, "16800", res.EndingCash)
	assert.True(t, res.Difference.IsZero())
	assert.True(t, res.Balanced)
}

func TestSanityCheck_OpenPayable(t *testing.T) {
	b := farmBook()
	// leave a second bill unpaid at year end
	b.post("fertbill", day(2023, time.November, 1), leg{account: "ap", value: "-700"}, leg{account: "seed", value: "700"})

	res, err := newReporter(b).SanityCheck(context.Background(), 2023)
	require.NoError(t, err)
	assertAmount(t, "-33900", res.NetCashFlow)
	assertAmount(t, "-700", res.EndingARAP)
	assertAmount(t, "16800", res.Net)
	assert.True(t, res.Balanced)
}

func TestSanityCheck_Unbalanced(t *testing.T) {
	b := farmBook()
	// payment-tagged legs are dropped from the farm view but still move cash
	b.post("oops", day(2023, time.July, 1), leg{account: "bank", value: "-100", action: "Payment"}, leg{account: "seed", value: "100", action: "Payment"})

	res, err := newReporter(b).SanityCheck(context.Background(), 2023)
	require.NoError(t, err)
	assert.False(t, res.Balanced)
	assertAmount(t, "100", res.Difference)
}

func TestSanityCheck_NoYear(t *testing.T) {
	_, err := newReporter(farmBook()).SanityCheck(context.Background(), 0)
	assert.Error(t, err)
}

func TestSanityCheck_LogsAtWarn(t *testing.T) {
	for _, tc := range []struct {
		name    string
		extra   bool
		summary string
	}{
		{name: "balanced", summary: `msg="books balance"`},
		{name: "unbalanced", extra: true, summary: `msg="books do not balance"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := farmBook()
			if tc.extra {
				b.post("oops", day(2023, time.July, 1), leg{account: "bank", value: "-100", action: "Payment"}, leg{account: "seed", value: "100", action: "Payment"})
			}
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
			r := New(b, accounts.Options{Depth: 1, Descriptors: []string{"Corn", "Soybeans"}, DefaultDescriptor: "General"}, log)

			_, err := r.SanityCheck(context.Background(), 2023)
			require.NoError(t, err)
			out := buf.String()
			assert.Contains(t, out, `level=WARN msg="ending cash balance"`)
			assert.Contains(t, out, `level=WARN msg="farm net inflows and outflows"`)
			assert.Contains(t, out, "level=WARN "+tc.summary)
		})
	}
}
