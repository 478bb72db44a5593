package risk_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"lotto/models"
	"lotto/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowLocks behaves like database row locks: a key taken by one transaction
// stays taken until that transaction commits.
type rowLocks struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner map[risk.Key]int
}

func newRowLocks() *rowLocks {
	r := &rowLocks{owner: make(map[risk.Key]int)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *rowLocks) acquire(tx int, k risk.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		o, ok := r.owner[k]
		if !ok || o == tx {
			break
		}
		r.cond.Wait()
	}
	r.owner[k] = tx
}

func (r *rowLocks) commit(tx int) {
	r.mu.Lock()
	for k, o := range r.owner {
		if o == tx {
			delete(r.owner, k)
		}
	}
	r.mu.Unlock()
	r.cond.Broadcast()
}

// txStore locks rows on Load the way a FOR UPDATE select does.
type txStore struct {
	*risk.MemoryStore
	rows *rowLocks
	tx   int
}

func (s *txStore) Load(ctx context.Context, key risk.Key) (*models.RiskEntry, error) {
	s.rows.acquire(s.tx, key)
	return s.MemoryStore.Load(ctx, key)
}

func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not finish within %s", what, d)
	}
}

func TestLockKeys_HeldAcrossTransaction(t *testing.T) {
	ctx := context.Background()
	base := risk.NewMemoryStore()
	rows := newRowLocks()
	pool := risk.NewPool(dec("1200000"))
	ctrl := risk.New(base, pool, riskConfig())

	req := func(number string) risk.Request {
		return risk.Request{RoundID: 1, Category: models.CategoryToad3, Number: number, Amount: dec("10")}
	}

	// ticket A bets two permutations of one toad number
	keysA := []risk.Key{
		risk.NewKey(1, models.CategoryToad3, "123"),
		risk.NewKey(1, models.CategoryToad3, "321"),
	}
	releaseA := ctrl.Ledger().LockKeys(keysA)
	a := ctrl.Bind(&txStore{MemoryStore: base, rows: rows, tx: 1}, pool, keysA...)

	d, err := a.Decide(ctx, req("123"))
	require.NoError(t, err)
	require.True(t, d.Accepted)

	// ticket B goes for the same entry while A is still open
	bDone := make(chan risk.Decision, 1)
	go func() {
		keysB := []risk.Key{risk.NewKey(1, models.CategoryToad3, "213")}
		release := ctrl.Ledger().LockKeys(keysB)
		defer release()
		b := ctrl.Bind(&txStore{MemoryStore: base, rows: rows, tx: 2}, pool, keysB...)
		d, err := b.Decide(ctx, req("213"))
		assert.NoError(t, err)
		rows.commit(2)
		bDone <- d
	}()
	time.Sleep(50 * time.Millisecond)

	within(t, 2*time.Second, "second bet of ticket A", func() {
		d, err = a.Decide(ctx, req("321"))
	})
	require.NoError(t, err)
	require.True(t, d.Accepted)
	assertDec(t, "20", d.NewTotal)

	rows.commit(1)
	releaseA()

	select {
	case d := <-bDone:
		assert.True(t, d.Accepted)
		assertDec(t, "30", d.NewTotal)
	case <-time.After(2 * time.Second):
		t.Fatal("ticket B never got the entry")
	}

	s, err := ctrl.Ledger().Query(ctx, risk.NewKey(1, models.CategoryToad3, "132"))
	require.NoError(t, err)
	assertDec(t, "30", s.TotalAmount)
	assert.Equal(t, int64(3), s.BetCount)
}

func TestSortKeys(t *testing.T) {
	keys := []risk.Key{
		risk.NewKey(2, models.CategoryTop2, "10"),
		risk.NewKey(1, models.CategoryTop3, "999"),
		risk.NewKey(1, models.CategoryToad3, "321"),
		risk.NewKey(1, models.CategoryToad3, "123"),
		risk.NewKey(1, models.CategoryBottom2, "05"),
	}
	got := risk.SortKeys(keys)
	require.Len(t, got, 4, "toad permutations collapse to one key")
	assert.Equal(t, models.CategoryBottom2, got[0].Category)
	assert.Equal(t, models.CategoryToad3, got[1].Category)
	assert.Equal(t, models.CategoryTop3, got[2].Category)
	assert.Equal(t, uint(2), got[3].RoundID)
}

func TestDeferred_BuffersNetSales(t *testing.T) {
	ctx := context.Background()
	pool := risk.NewPool(dec("1000"))
	d := risk.Defer(pool)

	require.NoError(t, d.AddNetSales(ctx, dec("46")))
	require.NoError(t, d.AddNetSales(ctx, dec("4")))
	require.Error(t, d.AddNetSales(ctx, dec("-1")))

	c, err := d.Capital(ctx)
	require.NoError(t, err)
	assertDec(t, "1050", c, "buffered sales count toward capital")
	assert.True(t, pool.NetSales().IsZero())

	require.NoError(t, d.Flush(ctx))
	assertDec(t, "50", pool.NetSales())
	assert.True(t, d.Pending().IsZero())

	require.NoError(t, d.Flush(ctx))
	assertDec(t, "50", pool.NetSales(), "flushing twice writes once")
}
