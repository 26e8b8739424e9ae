package reconciliation_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/domain/audit"
	"github.com/your-org/pharmacy-pos/internal/domain/reconciliation"
	"github.com/your-org/pharmacy-pos/internal/domain/sale"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/logger"
	"github.com/your-org/pharmacy-pos/internal/pkg/postcommit"
	"github.com/your-org/pharmacy-pos/internal/pkg/testutil"
	"gorm.io/gorm"
)

// busyLocker refuses every lock, as redislock does while another holder has the key
type busyLocker struct {
	keys []string
}

func (l *busyLocker) Obtain(_ context.Context, key string, _ time.Duration, _ *redislock.Options) (*redislock.Lock, error) {
	l.keys = append(l.keys, key)
	return nil, redislock.ErrNotObtained
}

// downLocker simulates an unreachable lock service
type downLocker struct{}

func (downLocker) Obtain(context.Context, string, time.Duration, *redislock.Options) (*redislock.Lock, error) {
	return nil, errors.New("dial tcp: connection refused")
}

// memoryScripter answers redislock's obtain and release scripts from a map. Release
// fails once its context is done, like a real round trip would. onObtain runs right
// after a lock is handed out.
type memoryScripter struct {
	mu            sync.Mutex
	held          map[string]string
	releaseCtxErr []error
	releaseTimed  []bool
	onObtain      func()
}

func newMemoryScripter() *memoryScripter {
	return &memoryScripter{held: map[string]string{}}
}

func (m *memoryScripter) run(ctx context.Context, keys []string, args ...any) *redis.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewCmd(ctx)
	key, token := keys[0], args[0].(string)
	if len(args) == 1 {
		_, timed := ctx.Deadline()
		m.releaseCtxErr = append(m.releaseCtxErr, ctx.Err())
		m.releaseTimed = append(m.releaseTimed, timed)
		if err := ctx.Err(); err != nil {
			cmd.SetErr(err)
			return cmd
		}
		if m.held[key] != token {
			cmd.SetVal(int64(0))
			return cmd
		}
		delete(m.held, key)
		cmd.SetVal(int64(1))
		return cmd
	}

	if _, taken := m.held[key]; taken {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	m.held[key] = token
	cmd.SetVal("OK")
	if m.onObtain != nil {
		m.onObtain()
	}
	return cmd
}

func (m *memoryScripter) Eval(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return m.run(ctx, keys, args...)
}

func (m *memoryScripter) EvalSha(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return m.run(ctx, keys, args...)
}

func (m *memoryScripter) EvalRO(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return m.run(ctx, keys, args...)
}

func (m *memoryScripter) EvalShaRO(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return m.run(ctx, keys, args...)
}

func (m *memoryScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	cmd := redis.NewBoolSliceCmd(ctx)
	cmd.SetVal(make([]bool, len(hashes)))
	return cmd
}

func (m *memoryScripter) ScriptLoad(ctx context.Context, _ string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("")
	return cmd
}

func (m *memoryScripter) heldKeys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

func newService(t *testing.T, db *gorm.DB, locker reconciliation.Locker) *reconciliation.Service {
	t.Helper()
	return reconciliation.NewService(db, testutil.Config(), locker, nil, logger.Discard())
}

// oversell sells 25 units of a 23 unit product with the override flag and returns the
// case opened for it
func oversell(t *testing.T, db *gorm.DB, cases *reconciliation.Service) (uint, *reconciliation.Case) {
	t.Helper()
	p := testutil.CreateProduct(t, db, "PARA", testutil.WithStock(2, 3))

	dispatcher := postcommit.NewDispatcher(logger.Discard(), nil, time.Second)
	sales := sale.NewService(db, testutil.Config(), cases, dispatcher, nil, logger.Discard())
	_, err := sales.ProcessSale(context.Background(), testutil.Owner, &sale.SaleRequest{
		Items:         []sale.ItemRequest{{ProductID: p.ID, Quantity: 25}},
		PaymentMethod: sale.PaymentCash,
		AmountPaid:    decimal.NewFromInt(100),
		IgnoreStock:   true,
	})
	require.NoError(t, err)
	dispatcher.Wait()

	list, err := cases.List(context.Background(), testutil.TenantID, reconciliation.StatusPending)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return p.ID, &list[0]
}

func TestCase_Transitions(t *testing.T) {
	tests := []struct {
		from reconciliation.Status
		to   reconciliation.Status
		ok   bool
	}{
		{reconciliation.StatusPending, reconciliation.StatusInvestigating, true},
		{reconciliation.StatusPending, reconciliation.StatusResolved, true},
		{reconciliation.StatusPending, reconciliation.StatusAdjusted, true},
		{reconciliation.StatusInvestigating, reconciliation.StatusResolved, true},
		{reconciliation.StatusInvestigating, reconciliation.StatusAdjusted, true},
		{reconciliation.StatusInvestigating, reconciliation.StatusPending, false},
		{reconciliation.StatusResolved, reconciliation.StatusAdjusted, false},
		{reconciliation.StatusAdjusted, reconciliation.StatusResolved, false},
		{reconciliation.StatusResolved, reconciliation.StatusResolved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := &reconciliation.Case{Status: tt.from}
			assert.Equal(t, tt.ok, c.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, (&reconciliation.Case{Status: reconciliation.StatusAdjusted}).IsTerminal())
	assert.False(t, (&reconciliation.Case{Status: reconciliation.StatusInvestigating}).IsTerminal())
}

func TestOpenCase_IgnoresLinesWithoutDeficit(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(t, db, nil)

	err := svc.OpenCase(context.Background(), &sale.Sale{ID: 1, TenantID: testutil.TenantID, ReceiptNumber: "RCP-1"},
		sale.StockWarning{ProductID: 1, Requested: 5, Available: 5})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), testutil.TenantID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResolve_WalksTheStateMachine(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(t, db, nil)
	_, c := oversell(t, db, svc)
	ctx := context.Background()

	got, err := svc.Resolve(ctx, testutil.Pharmacist, c.ID, &reconciliation.ResolveRequest{
		Status: reconciliation.StatusInvestigating,
		Notes:  "counting shelf",
	})
	require.NoError(t, err)
	assert.Equal(t, reconciliation.StatusInvestigating, got.Status)
	assert.Equal(t, "counting shelf", got.Notes)
	assert.Nil(t, got.ResolvedBy)

	writeOff := reconciliation.ActionWriteOff
	got, err = svc.Resolve(ctx, testutil.Owner, c.ID, &reconciliation.ResolveRequest{
		Status: reconciliation.StatusAdjusted,
		Action: &writeOff,
	})
	require.NoError(t, err)
	assert.Equal(t, reconciliation.StatusAdjusted, got.Status)
	require.NotNil(t, got.Action)
	assert.Equal(t, reconciliation.ActionWriteOff, *got.Action)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, testutil.Owner.ID, *got.ResolvedBy)
	assert.NotNil(t, got.ResolvedAt)
	assert.Equal(t, "counting shelf", got.Notes)

	_, err = svc.Resolve(ctx, testutil.Owner, c.ID, &reconciliation.ResolveRequest{Status: reconciliation.StatusResolved})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
	assert.Equal(t, reconciliation.StatusAdjusted, appErr.Details["current_status"])
	assert.Equal(t, "reconciliation case is already adjusted", appErr.Message)
}

func TestResolve_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(t, db, nil)
	_, c := oversell(t, db, svc)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, testutil.Owner, c.ID, &reconciliation.ResolveRequest{Status: reconciliation.StatusAdjusted})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "action")

	_, err = svc.Resolve(ctx, testutil.Owner, c.ID, &reconciliation.ResolveRequest{Status: reconciliation.StatusPending})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.Resolve(ctx, testutil.Owner, 9999, &reconciliation.ResolveRequest{Status: reconciliation.StatusResolved})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	other := actor.Actor{ID: 99, Role: actor.RoleOwner, TenantID: testutil.TenantID + 1}
	_, err = svc.Resolve(ctx, other, c.ID, &reconciliation.ResolveRequest{Status: reconciliation.StatusResolved})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAdjustFromCase_RestoresStockAndClosesCase(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(t, db, nil)
	productID, c := oversell(t, db, svc)
	ctx := context.Background()

	result, err := svc.AdjustFromCase(ctx, testutil.Pharmacist, c.ID, &reconciliation.AdjustRequest{
		Quantity: c.Deficit,
		Notes:    "found a strip in the back",
	})
	require.NoError(t, err)

	assert.Equal(t, reconciliation.StatusAdjusted, result.Case.Status)
	require.NotNil(t, result.Case.Action)
	assert.Equal(t, reconciliation.ActionStockAdjusted, *result.Case.Action)
	assert.Equal(t, 25, result.UpdatedStock.TotalUnits)
	assert.Equal(t, 2, result.UpdatedStock.FullPacks)
	assert.Equal(t, 5, result.UpdatedStock.LooseUnits)
	assert.Equal(t, 25, testutil.Reload(t, db, productID).Stock.TotalUnits())

	var entries []audit.Entry
	require.NoError(t, db.Where("product_id = ? AND action = ?", productID, audit.ActionStockAdjust).Find(&entries).Error)
	require.Len(t, entries, 1)
	details, ok := entries[0].Details.Details.(audit.StockAdjustDetails)
	require.True(t, ok)
	require.NotNil(t, details.ReconciliationCaseID)
	assert.Equal(t, c.ID, *details.ReconciliationCaseID)
	assert.Equal(t, 2, details.Quantity)
	assert.Equal(t, 23, entries[0].PreviousState.TotalUnits)
	assert.Equal(t, 25, entries[0].NewState.TotalUnits)

	// a settled case cannot be adjusted twice
	_, err = svc.AdjustFromCase(ctx, testutil.Pharmacist, c.ID, &reconciliation.AdjustRequest{Quantity: 2})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Equal(t, 25, testutil.Reload(t, db, productID).Stock.TotalUnits())
}

func TestAdjustFromCase_OnlyPendingCases(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(t, db, nil)
	productID, c := oversell(t, db, svc)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, testutil.Owner, c.ID, &reconciliation.ResolveRequest{Status: reconciliation.StatusInvestigating})
	require.NoError(t, err)

	_, err = svc.AdjustFromCase(ctx, testutil.Owner, c.ID, &reconciliation.AdjustRequest{Quantity: 2})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Equal(t, 23, testutil.Reload(t, db, productID).Stock.TotalUnits())

	_, err = svc.AdjustFromCase(ctx, testutil.Owner, c.ID, &reconciliation.AdjustRequest{Quantity: 0})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.AdjustFromCase(ctx, testutil.Owner, c.ID, &reconciliation.AdjustRequest{Quantity: math.MaxInt})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestAdjustFromCase_Locking(t *testing.T) {
	t.Run("held lock rejects the adjustment", func(t *testing.T) {
		db := testutil.NewDB(t)
		locker := &busyLocker{}
		svc := newService(t, db, locker)
		productID, c := oversell(t, db, svc)

		_, err := svc.AdjustFromCase(context.Background(), testutil.Owner, c.ID, &reconciliation.AdjustRequest{Quantity: 2})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
		assert.Equal(t, []string{"reconciliation:case:1:1"}, locker.keys)
		assert.Equal(t, 23, testutil.Reload(t, db, productID).Stock.TotalUnits())
	})

	t.Run("unreachable lock service falls back to the status check", func(t *testing.T) {
		db := testutil.NewDB(t)
		svc := newService(t, db, downLocker{})
		productID, c := oversell(t, db, svc)

		_, err := svc.AdjustFromCase(context.Background(), testutil.Owner, c.ID, &reconciliation.AdjustRequest{Quantity: 2})
		require.NoError(t, err)
		assert.Equal(t, 25, testutil.Reload(t, db, productID).Stock.TotalUnits())
	})
}

func TestAdjustFromCase_ReleasesLock(t *testing.T) {
	t.Run("after a successful adjustment", func(t *testing.T) {
		db := testutil.NewDB(t)
		scripts := newMemoryScripter()
		svc := newService(t, db, redislock.New(scripts))
		productID, c := oversell(t, db, svc)

		_, err := svc.AdjustFromCase(context.Background(), testutil.Owner, c.ID, &reconciliation.AdjustRequest{Quantity: 2})
		require.NoError(t, err)
		assert.Equal(t, 25, testutil.Reload(t, db, productID).Stock.TotalUnits())
		assert.Equal(t, 0, scripts.heldKeys())
		assert.Equal(t, []bool{true}, scripts.releaseTimed)
	})

	t.Run("when the request is cancelled while holding it", func(t *testing.T) {
		db := testutil.NewDB(t)
		scripts := newMemoryScripter()
		svc := newService(t, db, redislock.New(scripts))
		productID, c := oversell(t, db, svc)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		scripts.onObtain = cancel

		_, err := svc.AdjustFromCase(ctx, testutil.Owner, c.ID, &reconciliation.AdjustRequest{Quantity: 2})
		require.Error(t, err)
		assert.Equal(t, 0, scripts.heldKeys())
		assert.Equal(t, []error{nil}, scripts.releaseCtxErr)

		assert.Equal(t, 23, testutil.Reload(t, db, productID).Stock.TotalUnits())
		pending, err := svc.List(context.Background(), testutil.TenantID, reconciliation.StatusPending)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})
}

func TestListAndStats(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(t, db, nil)
	ctx := context.Background()

	for i, deficit := range []int{2, 3, 4} {
		err := svc.OpenCase(ctx, &sale.Sale{ID: uint(i + 1), TenantID: testutil.TenantID, ReceiptNumber: "RCP", AttendantID: 30},
			sale.StockWarning{ProductID: 1, ProductName: "Paracetamol", Requested: 10 + deficit, Available: 10, Deficit: deficit})
		require.NoError(t, err)
	}
	require.NoError(t, svc.OpenCase(ctx, &sale.Sale{ID: 9, TenantID: testutil.TenantID + 1, ReceiptNumber: "RCP"},
		sale.StockWarning{ProductID: 1, Requested: 11, Available: 10, Deficit: 1}))

	all, err := svc.List(ctx, testutil.TenantID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 4, all[0].Deficit)

	_, err = svc.Resolve(ctx, testutil.Owner, all[0].ID, &reconciliation.ResolveRequest{Status: reconciliation.StatusResolved})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, testutil.Owner, all[1].ID, &reconciliation.ResolveRequest{Status: reconciliation.StatusInvestigating})
	require.NoError(t, err)

	pending, err := svc.List(ctx, testutil.TenantID, reconciliation.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Deficit)

	_, err = svc.List(ctx, testutil.TenantID, "closed")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	stats, err := svc.Stats(ctx, testutil.TenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Open)
	assert.Equal(t, int64(5), stats.OpenDeficit)
	require.Len(t, stats.ByStatus, 3)
	byStatus := map[reconciliation.Status]reconciliation.StatusStats{}
	for _, row := range stats.ByStatus {
		byStatus[row.Status] = row
	}
	assert.Equal(t, int64(1), byStatus[reconciliation.StatusResolved].Count)
	assert.Equal(t, int64(4), byStatus[reconciliation.StatusResolved].TotalDeficit)
}
