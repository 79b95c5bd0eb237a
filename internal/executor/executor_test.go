package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/output"
	"github.com/EiffelFly/trafilatura/internal/pipeline"
	"github.com/EiffelFly/trafilatura/internal/scheduler"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time {
	return time.Unix(0, 0)
}

// stubFetcher maps each URL to a fixed outcome.
type stubFetcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.fail[url] {
		return nil, errors.New("no content")
	}
	return []byte("<html>document body content</html>"), nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, _ []byte, _ string, _ pipeline.Options) (string, error) {
	return "text", nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func newTestProcessor(t *testing.T) *pipeline.Processor {
	t.Helper()
	writer := output.NewWriter(output.Config{}, nil, rand.New(rand.NewSource(1)), &bytes.Buffer{}, zap.NewNop())
	return pipeline.NewProcessor(pipeline.Config{MinSize: 1}, stubExtractor{}, writer, zap.NewNop())
}

func newTestScheduler(urls []string) *scheduler.Scheduler {
	s := scheduler.New(0, rand.New(rand.NewSource(7)), fixedClock{}, zap.NewNop())
	s.Partition(urls, hostOf)
	return s
}

func manyURLs(domains, perDomain int) []string {
	var urls []string
	for d := 0; d < domains; d++ {
		for i := 0; i < perDomain; i++ {
			urls = append(urls, fmt.Sprintf("http://domain%d.com/page%d", d, i))
		}
	}
	return urls
}

func TestSequentialFetchesEverything(t *testing.T) {
	urls := []string{"http://a.com/1", "http://a.com/2", "http://b.com/1"}
	fetcher := &stubFetcher{}
	seq := NewSequential(fetcher, newTestProcessor(t), zap.NewNop())

	errs := seq.Run(context.Background(), newTestScheduler(urls), nil)
	require.Empty(t, errs)
	require.Equal(t, 3, fetcher.callCount())
}

func TestSequentialRecordsFailuresInOrder(t *testing.T) {
	urls := []string{"http://a.com/1", "http://a.com/2"}
	fetcher := &stubFetcher{fail: map[string]bool{
		"http://a.com/1": true,
		"http://a.com/2": true,
	}}
	seq := NewSequential(fetcher, newTestProcessor(t), zap.NewNop())

	errs := seq.Run(context.Background(), newTestScheduler(urls), nil)
	// LIFO draw order within a domain: /2 fails first.
	require.Equal(t, []string{"http://a.com/2", "http://a.com/1"}, errs)
}

func TestConcurrentFetchesEverything(t *testing.T) {
	urls := manyURLs(8, 4)
	fetcher := &stubFetcher{}
	conc := NewConcurrent(3, fetcher, newTestProcessor(t), zap.NewNop())

	errs := conc.Run(context.Background(), newTestScheduler(urls), nil)
	require.Empty(t, errs)
	require.Equal(t, len(urls), fetcher.callCount())
}

func TestConcurrentDelegatesSmallDomainPools(t *testing.T) {
	// Two domains, eight workers: everything goes through the sequential
	// path and still drains completely.
	urls := manyURLs(2, 5)
	fetcher := &stubFetcher{}
	conc := NewConcurrent(8, fetcher, newTestProcessor(t), zap.NewNop())

	errs := conc.Run(context.Background(), newTestScheduler(urls), nil)
	require.Empty(t, errs)
	require.Equal(t, len(urls), fetcher.callCount())
}

func TestSequentialAndConcurrentAgreeOnFailures(t *testing.T) {
	urls := manyURLs(6, 3)
	fail := map[string]bool{
		"http://domain0.com/page1": true,
		"http://domain3.com/page0": true,
		"http://domain5.com/page2": true,
	}

	seqErrs := NewSequential(&stubFetcher{fail: fail}, newTestProcessor(t), zap.NewNop()).
		Run(context.Background(), newTestScheduler(urls), nil)
	concErrs := NewConcurrent(4, &stubFetcher{fail: fail}, newTestProcessor(t), zap.NewNop()).
		Run(context.Background(), newTestScheduler(urls), nil)

	sort.Strings(seqErrs)
	sort.Strings(concErrs)
	require.Equal(t, seqErrs, concErrs, "both executors must agree on the failure set")
	require.Len(t, seqErrs, len(fail))
}

func TestConcurrentAdvancesCounter(t *testing.T) {
	urls := manyURLs(6, 2)
	counter := output.NewCounter(0)
	conc := NewConcurrent(3, &stubFetcher{}, newTestProcessor(t), zap.NewNop())

	errs := conc.Run(context.Background(), newTestScheduler(urls), counter)
	require.Empty(t, errs)
	require.Equal(t, len(urls), counter.Value())
}

func TestRetryArchivedRewritesURLs(t *testing.T) {
	fetcher := &stubFetcher{}
	seq := NewSequential(fetcher, newTestProcessor(t), zap.NewNop())
	newSched := func() *scheduler.Scheduler {
		return scheduler.New(0, rand.New(rand.NewSource(1)), fixedClock{}, zap.NewNop())
	}

	failed := []string{"http://a.com/gone", "http://b.com/lost"}
	residual := RetryArchived(context.Background(), failed, seq, newSched, nil, zap.NewNop())
	require.Empty(t, residual)
	require.ElementsMatch(t, []string{
		"https://web.archive.org/web/20/http://a.com/gone",
		"https://web.archive.org/web/20/http://b.com/lost",
	}, fetcher.calls)
}

func TestRetryArchivedEmptySetIsNoop(t *testing.T) {
	fetcher := &stubFetcher{}
	seq := NewSequential(fetcher, newTestProcessor(t), zap.NewNop())
	residual := RetryArchived(context.Background(), nil, seq, nil, nil, zap.NewNop())
	require.Empty(t, residual)
	require.Zero(t, fetcher.callCount())
}
