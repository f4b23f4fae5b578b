package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/cache"
	"github.com/boddenberg/expense-claim-bfa/internal/infra/observability"
	"github.com/boddenberg/expense-claim-bfa/internal/port/mocks"
	"github.com/boddenberg/expense-claim-bfa/internal/service"
)

type claimDeps struct {
	connectivity *mocks.MockConnectivityChecker
	summary      *mocks.MockSummaryRenderer
	merger       *mocks.MockAttachmentMerger
	poster       *mocks.MockWebhookPoster
	metrics      *observability.Metrics
}

func newClaimService(t *testing.T) (*service.ClaimService, *claimDeps) {
	ctrl := gomock.NewController(t)
	deps := &claimDeps{
		connectivity: mocks.NewMockConnectivityChecker(ctrl),
		summary:      mocks.NewMockSummaryRenderer(ctrl),
		merger:       mocks.NewMockAttachmentMerger(ctrl),
		poster:       mocks.NewMockWebhookPoster(ctrl),
		metrics:      observability.NewMetrics(),
	}
	outcomes := cache.New[*domain.SubmissionOutcome](time.Minute)
	t.Cleanup(outcomes.Stop)

	svc := service.NewClaimService(
		domain.DefaultChartOfAccounts(),
		deps.connectivity,
		deps.summary,
		deps.merger,
		deps.poster,
		outcomes,
		service.ClaimConfig{LimitBytes: service.LimitBytes(4.5), EncodeFields: true},
		deps.metrics,
		zap.NewNop(),
	)
	return svc, deps
}

func smallClaim() *domain.Claim {
	claim := baseClaim()
	claim.Items = []domain.ExpenseItem{
		{Type: "Flights", Amount: d("250"), Files: []domain.FileInput{file("ticket.pdf")}},
	}
	return claim
}

func TestSubmit_SmallClaimEndToEnd(t *testing.T) {
	svc, deps := newClaimService(t)
	claim := smallClaim()

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(nil)
	deps.summary.EXPECT().RenderSummary(gomock.Any(), claim, gomock.Any()).Return([]byte("%PDF-summary"), nil)
	deps.merger.EXPECT().MergeGroup(gomock.Any(), gomock.Len(1)).
		Return(&domain.MergedDocument{PDF: []byte("%PDF-receipts"), PageCount: 1}, nil)

	var body []byte
	deps.poster.EXPECT().Post(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *domain.WebhookRequest) error {
			body = req.Body
			return nil
		})

	out, err := svc.Submit(context.Background(), claim, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateSucceeded, out.State)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.BatchesTotal)

	p := decodePayload(t, body, true)
	assert.Equal(t, []domain.LineItem{
		{Description: "Flights", Quantity: 1, Amount: 250, AccountCode: "480", TaxType: ""},
	}, p.LineItems)
	require.Len(t, p.Attachments, 2)
	assert.Equal(t, "Expense Claim - Aroha Ngata - 2024-05-01.pdf", p.Attachments[0].FileName)
	assert.Equal(t, "Receipts - Flights - 2024-05-01.pdf", p.Attachments[1].FileName)
	assert.Nil(t, p.BatchInfo)

	assert.Equal(t, int64(1), deps.metrics.GetSubmissionSnapshot().Succeeded)
}

func TestSubmit_OfflineSendsNothing(t *testing.T) {
	svc, deps := newClaimService(t)

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(&domain.ErrOffline{Err: errors.New("no route")})

	var events []domain.ProgressEvent
	out, err := svc.Submit(context.Background(), smallClaim(), func(ev domain.ProgressEvent) { events = append(events, ev) })
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, out.State)
	assert.Equal(t, domain.KindOffline, out.ErrorKind)
	assert.Equal(t, domain.UserMessage(domain.KindOffline), out.Message)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.StatePlanning, events[0].State)
}

func TestSubmit_SummaryRenderFailureSendsNothing(t *testing.T) {
	svc, deps := newClaimService(t)

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(nil)
	deps.summary.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("font missing"))

	out, err := svc.Submit(context.Background(), smallClaim(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, out.State)
	assert.Equal(t, domain.KindUnknown, out.ErrorKind)
	assert.Equal(t, int64(1), deps.metrics.GetSubmissionSnapshot().Failed)
}

func TestSubmit_GroupMergeFailureSendsNothing(t *testing.T) {
	svc, deps := newClaimService(t)

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(nil)
	deps.summary.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte("%PDF"), nil)
	deps.merger.EXPECT().MergeGroup(gomock.Any(), gomock.Any()).Return(nil, errors.New("pdf engine crashed"))

	out, err := svc.Submit(context.Background(), smallClaim(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, out.State)
	assert.Equal(t, domain.KindUnknown, out.ErrorKind)
}

func TestSubmit_DeliveredClaimIsReplayed(t *testing.T) {
	svc, deps := newClaimService(t)
	claim := smallClaim()

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(nil).Times(1)
	deps.summary.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte("%PDF"), nil).Times(1)
	deps.merger.EXPECT().MergeGroup(gomock.Any(), gomock.Any()).
		Return(&domain.MergedDocument{PDF: []byte("%PDF"), PageCount: 1}, nil).Times(1)
	deps.poster.EXPECT().Post(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	first, err := svc.Submit(context.Background(), claim, nil)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svc.Submit(context.Background(), claim, nil)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, int64(1), deps.metrics.GetSubmissionSnapshot().IdempotentReplays)
}

func TestSubmit_FailedClaimIsRetried(t *testing.T) {
	svc, deps := newClaimService(t)

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(&domain.ErrOffline{Err: errors.New("down")})
	_, err := svc.Submit(context.Background(), smallClaim(), nil)
	require.NoError(t, err)

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(&domain.ErrOffline{Err: errors.New("still down")})
	out, err := svc.Submit(context.Background(), smallClaim(), nil)
	require.NoError(t, err)
	assert.False(t, out.Replayed)
}

func TestSubmit_ConcurrentSubmissionsShareOneAttempt(t *testing.T) {
	svc, deps := newClaimService(t)
	release := make(chan struct{})

	deps.connectivity.EXPECT().Check(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			<-release
			return nil
		}).Times(1)
	deps.summary.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte("%PDF"), nil).Times(1)
	deps.merger.EXPECT().MergeGroup(gomock.Any(), gomock.Any()).
		Return(&domain.MergedDocument{PDF: []byte("%PDF"), PageCount: 1}, nil).Times(1)
	deps.poster.EXPECT().Post(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	var wg sync.WaitGroup
	results := make([]*domain.SubmissionOutcome, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Submit(context.Background(), smallClaim(), nil)
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, out := range results {
		require.NotNil(t, out)
		assert.Equal(t, domain.StateSucceeded, out.State)
	}
}

func TestSubmit_SharedAttemptOutlivesFirstCaller(t *testing.T) {
	svc, deps := newClaimService(t)
	posting := make(chan struct{})
	release := make(chan struct{})

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(nil).Times(1)
	deps.summary.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte("%PDF"), nil).Times(1)
	deps.merger.EXPECT().MergeGroup(gomock.Any(), gomock.Any()).
		Return(&domain.MergedDocument{PDF: []byte("%PDF"), PageCount: 1}, nil).Times(1)
	deps.poster.EXPECT().Post(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *domain.WebhookRequest) error {
			close(posting)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan *domain.SubmissionOutcome, 1)
	go func() {
		out, err := svc.Submit(ctx, smallClaim(), nil)
		assert.NoError(t, err)
		first <- out
	}()
	<-posting

	var mu sync.Mutex
	var states []domain.SubmissionState
	second := make(chan *domain.SubmissionOutcome, 1)
	go func() {
		out, err := svc.Submit(context.Background(), smallClaim(), func(ev domain.ProgressEvent) {
			mu.Lock()
			states = append(states, ev.State)
			mu.Unlock()
		})
		assert.NoError(t, err)
		second <- out
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	left := <-first
	assert.Equal(t, domain.StateFailed, left.State)

	close(release)
	out := <-second
	assert.Equal(t, domain.StateSucceeded, out.State)
	assert.False(t, out.Replayed)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, domain.StateSucceeded)
}

func TestSubmit_LastCallerLeavingCancelsTheAttempt(t *testing.T) {
	svc, deps := newClaimService(t)
	posting := make(chan struct{})
	postErr := make(chan error, 1)

	deps.connectivity.EXPECT().Check(gomock.Any()).Return(nil)
	deps.summary.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte("%PDF"), nil)
	deps.merger.EXPECT().MergeGroup(gomock.Any(), gomock.Any()).
		Return(&domain.MergedDocument{PDF: []byte("%PDF"), PageCount: 1}, nil)
	deps.poster.EXPECT().Post(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *domain.WebhookRequest) error {
			close(posting)
			<-ctx.Done()
			postErr <- ctx.Err()
			return ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *domain.SubmissionOutcome, 1)
	go func() {
		out, _ := svc.Submit(ctx, smallClaim(), nil)
		done <- out
	}()
	<-posting
	cancel()

	assert.Equal(t, domain.StateFailed, (<-done).State)
	select {
	case err := <-postErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("attempt kept running after its only caller left")
	}
}

func TestSubmit_DerivesStableClaimID(t *testing.T) {
	a := smallClaim()
	a.ID = ""
	b := smallClaim()
	b.ID = ""

	assert.Equal(t, service.Fingerprint(a), service.Fingerprint(b))

	b.Items[0].Amount = d("251")
	assert.NotEqual(t, service.Fingerprint(a), service.Fingerprint(b))

	svc, deps := newClaimService(t)
	deps.connectivity.EXPECT().Check(gomock.Any()).Return(&domain.ErrOffline{Err: errors.New("down")})

	out, err := svc.Submit(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Len(t, out.ClaimID, 36)
	assert.Empty(t, a.ID)
}

func TestSubmit_NilClaim(t *testing.T) {
	svc, _ := newClaimService(t)

	_, err := svc.Submit(context.Background(), nil, nil)
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestClaimServicePlan_DryRunDoesNotSend(t *testing.T) {
	svc, deps := newClaimService(t)

	deps.summary.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte("%PDF"), nil)
	deps.merger.EXPECT().MergeGroup(gomock.Any(), gomock.Any()).
		Return(&domain.MergedDocument{PDF: []byte("%PDF"), PageCount: 1}, nil)

	summary, err := svc.Plan(context.Background(), smallClaim())
	require.NoError(t, err)

	assert.False(t, summary.Batched)
	require.Len(t, summary.Batches, 1)
	assert.Equal(t, []string{
		"Expense Claim - Aroha Ngata - 2024-05-01.pdf",
		"Receipts - Flights - 2024-05-01.pdf",
	}, summary.Batches[0].Files)
	assert.Len(t, summary.LineItems, 1)
}
