package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lkarlslund/channelsync/pkg/report"
)

type fakeGateway struct {
	channels  []Channel
	total     int
	models    map[int][]string
	listErr   map[int]error
	getErr    map[int]error
	updateErr map[int]error

	queries   []ChannelQuery
	gets      []int
	updates   map[int]string
	loginUser string
	checkErr  error
	logins    int
}

func newFake(n int) *fakeGateway {
	f := &fakeGateway{
		total:     n,
		models:    map[int][]string{},
		listErr:   map[int]error{},
		getErr:    map[int]error{},
		updateErr: map[int]error{},
		updates:   map[int]string{},
	}
	for i := 1; i <= n; i++ {
		f.channels = append(f.channels, Channel{
			ID:     i,
			Name:   fmt.Sprintf("channel-%d", i),
			Type:   TypeOpenAI,
			Status: StatusEnabled,
			Raw:    []byte(fmt.Sprintf(`{"id":%d,"name":"channel-%d","type":1,"status":1}`, i, i)),
		})
		f.models[i] = []string{"gpt-4o", "gpt-4o-mini"}
	}
	return f
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) CheckLogin(context.Context) (string, error) {
	if f.checkErr != nil {
		return "", f.checkErr
	}
	return "root", nil
}

func (f *fakeGateway) Login(_ context.Context, username, _ string) error {
	f.logins++
	f.loginUser = username
	return nil
}

func (f *fakeGateway) ListChannels(_ context.Context, q ChannelQuery) (*ChannelPage, error) {
	f.queries = append(f.queries, q)
	if err := f.listErr[q.Page]; err != nil {
		return nil, err
	}
	page := &ChannelPage{TotalCount: f.total}
	start := (q.Page - 1) * q.Size
	if start < len(f.channels) {
		page.Channels = f.channels[start:min(start+q.Size, len(f.channels))]
	}
	return page, nil
}

func (f *fakeGateway) GetChannel(_ context.Context, id int) (*Channel, error) {
	f.gets = append(f.gets, id)
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	for i := range f.channels {
		if f.channels[i].ID == id {
			ch := f.channels[i]
			return &ch, nil
		}
	}
	return nil, &APIError{Op: "get channel", Message: "record not found"}
}

func (f *fakeGateway) ProviderModels(_ context.Context, ch *Channel) ([]string, error) {
	return f.models[ch.ID], nil
}

func (f *fakeGateway) UpdateChannel(_ context.Context, ch *Channel, models string) error {
	if err := f.updateErr[ch.ID]; err != nil {
		return err
	}
	f.updates[ch.ID] = models
	return nil
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func newTestSyncer(gw Gateway) (*Syncer, *bytes.Buffer, *sleepRecorder) {
	var out bytes.Buffer
	rec := &sleepRecorder{}
	s := NewSyncer(gw, report.New(&out))
	s.Delay = func(ceiling time.Duration) time.Duration { return ceiling }
	s.Sleep = rec.sleep
	return s, &out, rec
}

func checkInvariant(t *testing.T, st BatchStats) {
	t.Helper()
	if st.Success+st.Fail != st.Processed {
		t.Fatalf("success %d + fail %d != processed %d", st.Success, st.Fail, st.Processed)
	}
	if st.Processed > st.Total {
		t.Fatalf("processed %d exceeds total %d", st.Processed, st.Total)
	}
}

func TestBatchUpdateWalksEveryPage(t *testing.T) {
	for _, n := range []int{1, 9, 10, 11, 20, 23} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			fake := newFake(n)
			s, _, rec := newTestSyncer(fake)

			st, err := s.BatchUpdate(context.Background(), BatchOptions{MaxDelay: time.Second, Status: StatusEnabled})
			if err != nil {
				t.Fatalf("batch: %v", err)
			}
			checkInvariant(t, st)
			if st.Total != n || st.Processed != n || st.Success != n || st.Fail != 0 {
				t.Fatalf("unexpected stats %+v", st)
			}
			if want := (n + BatchPageSize - 1) / BatchPageSize; len(fake.queries) != want {
				t.Fatalf("expected %d page requests, got %d", want, len(fake.queries))
			}
			for i, q := range fake.queries {
				if q.Page != i+1 || q.Size != BatchPageSize || q.Type != TypeOpenAI || q.Status != StatusEnabled {
					t.Fatalf("unexpected query %d: %+v", i, q)
				}
			}
			if len(fake.updates) != n {
				t.Fatalf("expected %d updates, got %d", n, len(fake.updates))
			}
			if len(rec.calls) != n-1 {
				t.Fatalf("expected %d sleeps, got %d", n-1, len(rec.calls))
			}
			if st.RunID == "" {
				t.Fatal("expected a run id")
			}
		})
	}
}

func TestBatchUpdateIsolatesChannelFailures(t *testing.T) {
	fake := newFake(6)
	fake.models[2] = nil
	fake.getErr[4] = &HTTPError{Op: "get channel", StatusCode: 502}
	fake.updateErr[5] = &APIError{Op: "update channel", Message: "locked"}
	s, _, _ := newTestSyncer(fake)

	st, err := s.BatchUpdate(context.Background(), BatchOptions{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	checkInvariant(t, st)
	if st.Success != 3 || st.Fail != 3 || st.Processed != 6 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if _, ok := fake.updates[2]; ok {
		t.Fatal("channel with empty catalog must not be pushed")
	}
}

func TestBatchUpdateTrustsFirstTotal(t *testing.T) {
	fake := newFake(12)
	fake.total = 5
	s, out, rec := newTestSyncer(fake)

	st, err := s.BatchUpdate(context.Background(), BatchOptions{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	checkInvariant(t, st)
	if st.Processed != 5 || len(fake.updates) != 5 || len(fake.queries) != 1 {
		t.Fatalf("expected run capped at 5 items on one page, got %+v after %d pages", st, len(fake.queries))
	}
	if len(rec.calls) != 4 {
		t.Fatalf("expected 4 sleeps, got %d", len(rec.calls))
	}
	if !strings.Contains(out.String(), "Running iteration 5/5") {
		t.Fatalf("missing last iteration header:\n%s", out.String())
	}
}

func TestBatchUpdateStopsOnEmptyPage(t *testing.T) {
	fake := newFake(12)
	fake.total = 15
	s, _, _ := newTestSyncer(fake)

	st, err := s.BatchUpdate(context.Background(), BatchOptions{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	checkInvariant(t, st)
	if st.Total != 15 || st.Processed != 12 || len(fake.queries) != 3 {
		t.Fatalf("unexpected stats %+v after %d pages", st, len(fake.queries))
	}
}

func TestBatchUpdateNoChannels(t *testing.T) {
	fake := newFake(0)
	s, out, _ := newTestSyncer(fake)

	st, err := s.BatchUpdate(context.Background(), BatchOptions{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if st.Total != 0 || st.Processed != 0 || len(fake.queries) != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	text := out.String()
	if !strings.Contains(text, "Total: 0") || strings.Contains(text, "Completion") {
		t.Fatalf("unexpected summary:\n%s", text)
	}
}

func TestBatchUpdateSummary(t *testing.T) {
	fake := newFake(3)
	s, out, _ := newTestSyncer(fake)

	st, err := s.BatchUpdate(context.Background(), BatchOptions{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if st.Completion() != 100 {
		t.Fatalf("expected 100%% completion, got %v", st.Completion())
	}
	text := out.String()
	for _, want := range []string{
		"Starting batch channel update",
		"Processing channel ID: 2 (status: enabled)",
		"Progress: 66.7% (2/3) [success: 2, fail: 0]",
		"Batch update summary:",
		"Total: 3",
		"Success: 3",
		"Failed: 0",
		"Completion: 100.0%",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Updating single channel") {
		t.Fatalf("batch items must not print the single update banner:\n%s", text)
	}
}

func TestBatchUpdatePageFailureAborts(t *testing.T) {
	fake := newFake(25)
	fake.listErr[2] = &APIError{Op: "list channels", Message: "database is busy"}
	s, out, _ := newTestSyncer(fake)

	st, err := s.BatchUpdate(context.Background(), BatchOptions{})
	if !errors.Is(err, ErrListChannels) {
		t.Fatalf("expected ErrListChannels, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected cause to be kept, got %v", err)
	}
	checkInvariant(t, st)
	if st.Processed != 10 || st.Total != 25 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if !strings.Contains(out.String(), "Batch update summary:") {
		t.Fatalf("summary must be printed after an abort:\n%s", out.String())
	}
}

func TestBatchUpdateUnsupportedIsFatal(t *testing.T) {
	fake := newFake(5)
	fake.getErr[1] = &UnsupportedError{Backend: "fake", Op: "get channel"}
	s, _, _ := newTestSyncer(fake)

	st, err := s.BatchUpdate(context.Background(), BatchOptions{})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	checkInvariant(t, st)
	if st.Processed != 1 || st.Fail != 1 || len(fake.gets) != 1 {
		t.Fatalf("expected abort after first channel, got %+v", st)
	}
}

func TestBatchUpdateCancelledDuringDelay(t *testing.T) {
	fake := newFake(5)
	s, out, _ := newTestSyncer(fake)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return SleepContext(ctx, d)
	}

	st, err := s.BatchUpdate(ctx, BatchOptions{MaxDelay: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	checkInvariant(t, st)
	if st.Processed != 1 || st.Success != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if !strings.Contains(out.String(), "Total: 5") {
		t.Fatalf("summary must be printed after cancellation:\n%s", out.String())
	}
}

func TestUpdateChannelSuccess(t *testing.T) {
	fake := newFake(1)
	fake.models[1] = []string{"b", "a", "b"}
	s, out, _ := newTestSyncer(fake)

	ok, err := s.UpdateChannel(context.Background(), 1, UpdateOptions{MaskName: true})
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	if got := fake.updates[1]; got != "b,a,b" {
		t.Fatalf("expected provider order kept, got %q", got)
	}
	text := out.String()
	for _, want := range []string{
		"Updating single channel (ID: 1)",
		"channel name: c*******1 (type: OpenAI)",
		"fetched 3 models",
		"Single channel update finished",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestUpdateChannelMissing(t *testing.T) {
	fake := newFake(3)
	s, out, _ := newTestSyncer(fake)

	ok, err := s.UpdateChannel(context.Background(), 42, UpdateOptions{})
	if err != nil || ok {
		t.Fatalf("expected plain failure, got ok=%v err=%v", ok, err)
	}
	if len(fake.updates) != 0 {
		t.Fatal("no update may be pushed for a missing channel")
	}
	if !strings.Contains(out.String(), "channel 42: fetching details failed") {
		t.Fatalf("expected failing step to be reported:\n%s", out.String())
	}
}

func TestUpdateChannelEmptyCatalog(t *testing.T) {
	fake := newFake(1)
	fake.models[1] = []string{}
	s, _, _ := newTestSyncer(fake)

	ok, err := s.UpdateChannel(context.Background(), 1, UpdateOptions{})
	if err != nil || ok {
		t.Fatalf("expected plain failure, got ok=%v err=%v", ok, err)
	}
	if len(fake.updates) != 0 {
		t.Fatal("an empty catalog must not be pushed")
	}
}

func TestUpdateChannelPreviewTruncated(t *testing.T) {
	fake := newFake(1)
	fake.models[1] = []string{strings.Repeat("m", 40), strings.Repeat("n", 40)}
	s, out, _ := newTestSyncer(fake)

	if ok, err := s.UpdateChannel(context.Background(), 1, UpdateOptions{Batch: true}); !ok || err != nil {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	want := "replaced: " + strings.Repeat("m", 40) + "," + strings.Repeat("n", 9) + "..."
	if !strings.Contains(out.String(), want) {
		t.Fatalf("expected truncated preview %q in:\n%s", want, out.String())
	}
	if strings.Contains(out.String(), "Updating single channel") {
		t.Fatal("batch mode must not print the single update banner")
	}
}

func TestRandomDelayBounds(t *testing.T) {
	if RandomDelay(0) != 0 {
		t.Fatal("expected zero delay for zero ceiling")
	}
	ceiling := 3 * time.Second
	for i := 0; i < 1000; i++ {
		d := RandomDelay(ceiling)
		if d < ceiling/10 || d > ceiling {
			t.Fatalf("delay %v outside [%v, %v]", d, ceiling/10, ceiling)
		}
	}
}

func TestAuthenticateTokenNeverFallsBack(t *testing.T) {
	fake := newFake(0)
	fake.checkErr = &APIError{Op: "check login", Message: "access token is invalid"}

	_, err := Authenticate(context.Background(), fake, Credentials{Token: "bad", Username: "root", Password: "pw"})
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Method != "token" {
		t.Fatalf("expected token AuthError, got %v", err)
	}
	if fake.logins != 0 {
		t.Fatal("password login must not be attempted when a token is configured")
	}
}

func TestAuthenticatePassword(t *testing.T) {
	fake := newFake(0)
	user, err := Authenticate(context.Background(), fake, Credentials{Username: "root", Password: "pw"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user != "root" || fake.logins != 1 || fake.loginUser != "root" {
		t.Fatalf("unexpected login: user=%q logins=%d", user, fake.logins)
	}
}
