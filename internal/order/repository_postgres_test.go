package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

var (
	cartCols   = []string{"id", "userId", "productId", "title", "price", "salePrice", "qty", "imgUrls"}
	headerCols = []string{"orderNumber", "userId", "consignee", "tel", "address", "status", "checkTime"}
	lineCols   = []string{"orderNumber", "productId", "productName", "salePrice", "qty", "imgUrls"}
)

func newMockEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := NewEngine(NewPostgresRepository(db))
	e.newNumber = sequence("0123456789")
	e.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return e, mock
}

func expectCartOfUser7(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1, $2)")).
		WithArgs(checkoutLockNamespace, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF c")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cartCols).
			AddRow(1, 7, 3, "Day pass", "100", "0", 2, `["/img/day.jpg"]`).
			AddRow(2, 7, 5, "Night pass", "50", "0", 1, "[]"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("0123456789").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
}

func TestPostgresCheckout_CommitsHeaderLinesAndCartDelete(t *testing.T) {
	e, mock := newMockEngine(t)
	expectCartOfUser7(mock)
	mock.ExpectExec(`INSERT INTO "orderCustomers"`).
		WithArgs("0123456789", 7, "A", "0900000000", "X", StatusPaid, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "orderInfor"`).
		WithArgs("0123456789", 3, "Day pass", "100", 2, `["/img/day.jpg"]`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "orderInfor"`).
		WithArgs("0123456789", 5, "Night pass", "50", 1, "[]").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`DELETE FROM cart WHERE "userId" = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	conf, err := e.Checkout(context.Background(), auth.Identity{UserID: 7}, 0, recipientA, "")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", conf.OrderNumber)
	assert.True(t, conf.Order.TotalAmount.Equal(decimal.NewFromInt(250)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckout_RollsBackAfterHeaderInsert(t *testing.T) {
	e, mock := newMockEngine(t)
	expectCartOfUser7(mock)
	mock.ExpectExec(`INSERT INTO "orderCustomers"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "orderInfor"`).WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, err := e.Checkout(context.Background(), auth.Identity{UserID: 7}, 0, recipientA, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.Equal(t, "internal error", apperror.Message(err))
	// no second line insert, no cart delete, no commit
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckout_EmptyCartRollsBack(t *testing.T) {
	e, mock := newMockEngine(t)
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE OF c").WithArgs(7).WillReturnRows(sqlmock.NewRows(cartCols))
	mock.ExpectRollback()

	_, err := e.Checkout(context.Background(), auth.Identity{UserID: 7}, 0, recipientA, "")

	assert.ErrorIs(t, err, apperror.ErrEmptyCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckout_KeyCommittedWhileWaitingForLockReplays(t *testing.T) {
	e, mock := newMockEngine(t)
	checkTime := time.Date(2024, 5, 1, 8, 59, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(headerByKeyQuery)).WithArgs(7, "key-1").WillReturnRows(sqlmock.NewRows(headerCols))
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs(checkoutLockNamespace, 7).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(keyedNumberQuery)).WithArgs(7, "key-1").
		WillReturnRows(sqlmock.NewRows([]string{"orderNumber"}).AddRow("9876543210"))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(headerByKeyQuery)).WithArgs(7, "key-1").
		WillReturnRows(sqlmock.NewRows(headerCols).AddRow("9876543210", 7, "A", "0900000000", "X", StatusPaid, checkTime))
	mock.ExpectQuery(`FROM "orderInfor"`).
		WillReturnRows(sqlmock.NewRows(lineCols).
			AddRow("9876543210", 3, "Day pass", "100", 2, "[]").
			AddRow("9876543210", 5, "Night pass", "50", 1, "[]"))

	conf, err := e.Checkout(context.Background(), auth.Identity{UserID: 7}, 0, recipientA, "key-1")

	require.NoError(t, err)
	assert.True(t, conf.Replayed)
	assert.Equal(t, "9876543210", conf.OrderNumber)
	assert.True(t, conf.Order.TotalAmount.Equal(decimal.NewFromInt(250)))
	// no cart read, no header insert
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckout_NewKeyPlacesOrder(t *testing.T) {
	e, mock := newMockEngine(t)
	mock.ExpectQuery(regexp.QuoteMeta(headerByKeyQuery)).WithArgs(7, "key-2").WillReturnRows(sqlmock.NewRows(headerCols))
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs(checkoutLockNamespace, 7).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(keyedNumberQuery)).WithArgs(7, "key-2").
		WillReturnRows(sqlmock.NewRows([]string{"orderNumber"}))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF c")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(1, 7, 3, "Day pass", "100", "0", 2, "[]"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("0123456789").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO "orderCustomers"`).
		WithArgs("0123456789", 7, "A", "0900000000", "X", StatusPaid, sqlmock.AnyArg(), "key-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "orderInfor"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM cart`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conf, err := e.Checkout(context.Background(), auth.Identity{UserID: 7}, 0, recipientA, "key-2")

	require.NoError(t, err)
	assert.False(t, conf.Replayed)
	assert.Equal(t, "0123456789", conf.OrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateStatus_Conditional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec(`UPDATE "orderCustomers" SET status`).
		WithArgs("0123456789", StatusCancelled, StatusPaid).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.UpdateStatus(context.Background(), "0123456789", StatusPaid, StatusCancelled)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByUser_GroupsLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM "orderCustomers"`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(headerCols).
			AddRow("2222222222", 7, "A", "0900000000", "X", StatusPaid, ts).
			AddRow("1111111111", 7, "A", "0900000000", "X", StatusShipped, ts.Add(-time.Hour)))
	mock.ExpectQuery(`ANY\(\$1::text\[\]\)`).
		WithArgs(`{"2222222222","1111111111"}`).
		WillReturnRows(sqlmock.NewRows(lineCols).
			AddRow("1111111111", 3, "Day pass", "100", 1, "[]").
			AddRow("2222222222", 5, "Night pass", "50", 2, "[]").
			AddRow("2222222222", 3, "Day pass", "100", 1, "[]"))

	orders, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "2222222222", orders[0].OrderNumber)
	assert.Len(t, orders[0].Items, 2)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, orders[1].TotalAmount.Equal(decimal.NewFromInt(100)))
}
