package service_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/service"
)

func attachmentOfSize(name string, n int) domain.Attachment {
	return domain.NewAttachment(name, "application/pdf", bytes.Repeat([]byte{'x'}, n))
}

func TestEstimateSize_Formula(t *testing.T) {
	atts := []domain.Attachment{attachmentOfSize("a", 1000), attachmentOfSize("b", 1)}

	assert.Equal(t, int64(2000+1100+101), service.EstimateSize(atts, false))
	assert.Equal(t, int64(4290), service.EstimateSize(atts, true)) // ceil(3201*1.34)
	assert.Equal(t, int64(2000), service.EstimateSize(nil, false))
}

func TestEstimateSize_UsesDecodedLength(t *testing.T) {
	for n := 0; n < 8; n++ {
		a := attachmentOfSize("a", n)
		assert.Equal(t, int64(n), a.SizeBytes(), "n=%d", n)
	}
}

func TestEstimateSize_Monotonic(t *testing.T) {
	for _, double := range []bool{false, true} {
		prev := int64(-1)
		for n := 0; n < 5000; n += 37 {
			got := service.EstimateSize([]domain.Attachment{attachmentOfSize("a", n)}, double)
			assert.GreaterOrEqual(t, got, prev, "n=%d double=%v", n, double)
			prev = got
		}
	}
}

func TestEstimateSize_DoubleEncodeStrictlyGreater(t *testing.T) {
	cases := [][]domain.Attachment{
		nil,
		{attachmentOfSize("a", 0)},
		{attachmentOfSize("a", 1), attachmentOfSize("b", 2)},
		{attachmentOfSize("a", 100_000)},
	}
	for _, atts := range cases {
		assert.Greater(t, service.EstimateSize(atts, true), service.EstimateSize(atts, false))
	}
}

func TestExceedsLimit(t *testing.T) {
	limit := service.LimitBytes(4.5)
	assert.Equal(t, int64(4718592), limit)
	assert.False(t, service.ExceedsLimit(limit, 4.5))
	assert.True(t, service.ExceedsLimit(limit+1, 4.5))
	assert.False(t, service.ExceedsLimit(0, 0.001))
}

func TestAttachmentBudget_FitsOneAttachment(t *testing.T) {
	header := baseClaim().Header()
	for _, double := range []bool{false, true} {
		for _, limit := range []int64{10_000, 1 << 20, service.LimitBytes(4.5)} {
			budget := service.AttachmentBudget(limit, double)
			att := attachmentOfSize("receipt.pdf", int(budget))

			fits := service.EstimateSize([]domain.Attachment{att}, double)
			assert.LessOrEqual(t, fits, limit, "limit=%d double=%v", limit, double)

			batch := domain.Batch{
				Index:       99,
				Total:       99,
				Kind:        domain.BatchKindIndividualAttachment,
				AccountCode: "480",
				DisplayName: "Flights",
				Attachments: []domain.Attachment{att},
			}
			body, err := service.BuildPayload(header, batch, true, double)
			require.NoError(t, err)
			assert.LessOrEqual(t, int64(len(body)), limit, "limit=%d double=%v", limit, double)
		}
	}
	assert.Equal(t, int64(0), service.AttachmentBudget(100, false))
	assert.Less(t, service.AttachmentBudget(1<<20, true), service.AttachmentBudget(1<<20, false))
}
